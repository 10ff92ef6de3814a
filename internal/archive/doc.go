// Package archive keeps every cut-off date ever parsed in a SQLite database so
// that a visa category can be followed across bulletins.
//
// The schema is applied with embedded migrations when the archive is opened.
// Recording the same bulletin twice is harmless: rows are unique per period,
// date type, sponsorship, visa type and area.
package archive

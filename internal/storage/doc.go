// Package storage persists parsed bulletins as one JSON artifact per publication
// period.
//
// Artifacts are written once: Save refuses to overwrite an existing file, so
// repeated runs within the same month are no-ops. The file name is derived from
// the period only, e.g. Visa-Bulletin-2024-September.json.
package storage

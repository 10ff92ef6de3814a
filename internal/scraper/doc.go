// Package scraper fetches and parses the visa bulletin pages published on travel.state.gov.
//
// Two page shapes are understood. The bulletin index carries a "recent bulletins"
// list with one entry for the current month and one for the next month, which reads
// "Coming Soon" until it is published. Each bulletin detail page is a sequence of
// rich-text sections; sections holding tables are classified as final action dates
// or dates for filing from underlined headings, and every table cell becomes one
// bulletin.CutOffDate.
//
// Parsing never fails on document shape: missing containers, headings or rows yield
// fewer records, and are logged. Only fetching a page can return an error.
package scraper

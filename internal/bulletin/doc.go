// Package bulletin provides the types shared by every stage of the visa bulletin watcher.
//
// A run starts from the bulletin index page, which yields PageLink records for the
// current bulletin and the "coming soon" placeholder. Each resolvable link leads to a
// detail page whose tables become CutOffDate records, one per (visa category, area)
// cell. EvaluateNext decides from the link set alone whether next month's bulletin
// has been published.
package bulletin

// Package watcher runs one pass of the bulletin monitor: it reads the index
// page, reports whether next month's bulletin has been published, and saves and
// mails every bulletin it has not seen before.
//
// A failure on one bulletin is logged and does not stop the other. Only a
// failure to read the index page ends the run with an error.
package watcher

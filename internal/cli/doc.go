// Package cli implements the command-line interface for visa-bulletin.
//
// The cli package provides the Cobra-based command tree: the default run that
// saves and mails new bulletins, a check for next month's bulletin, commands to
// inspect the index and a single bulletin page, the history query, the read
// API server and a helper that encrypts the SMTP secret. It wires the config,
// scraper, storage, archive, notifier and watcher packages together.
package cli

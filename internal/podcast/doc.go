// Package podcast defines the record shapes shared across the viewer: the
// processed podcast record persisted as one JSON file per podcast, the
// spreadsheet row that mirrors it, and the ports (stores, spreadsheet,
// remote processor, ledger, notifier) the sync, catalog, and submission
// components depend on.
package podcast

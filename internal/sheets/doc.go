// Package sheets talks to the spreadsheet that mirrors the record store.
//
// Reads go through the spreadsheet's CSV export endpoint and are cached for a
// fixed window; writes append one literal row per record through the Sheets
// API using a service-account credential.
package sheets

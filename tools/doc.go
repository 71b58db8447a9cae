// Package tools is the named-operation surface over candidex.
//
// Service exposes the typed operations recruiters actually run: free-form
// hybrid search, skill combinations, role and education lookups, plus the
// record-level get, list, ingest and delete. Every search operation is a
// core.SearchQuery built on the caller's behalf and answered by the
// hybrid searcher, so scores and ordering match a hand-written query.
//
// Dispatcher maps operation names to JSON-argument handlers for transports
// that only carry a name and a payload (the HTTP invoke route, agents).
package tools

// Package reindex repairs the vector index against the candidate store.
//
// Ingestion writes the candidate store first and the vector index second,
// so a failed second write leaves a candidate that fuzzy search can find but
// semantic search cannot. The Reindexer is the explicitly scheduled pass
// that closes that gap. It pages through the candidate store, re-upserts
// every candidate whose index entry is missing or stale, and removes index
// entries whose candidate no longer exists. Running it twice in a row does
// no work the second time.
package reindex

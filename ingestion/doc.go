// Package ingestion writes candidates to both stores.
//
// The Ingester treats the two writes as one logical unit without a shared
// transaction:
//   - the candidate store is written first and is the source of truth
//   - the vector index is written second; a failure there is reported as an
//     inconsistent_write warning and left for the reindex repair pass
//
// Batches run concurrently on a worker pool. Documents on disk can be
// ingested end to end through a DocumentParser and an Extractor.
package ingestion

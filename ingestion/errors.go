package ingestion

import "errors"

var (
	// ErrCandidateStoreRequired is returned when a candidate store is not provided.
	ErrCandidateStoreRequired = errors.New("candidate store required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrExtractorRequired is returned by document ingestion without an extractor.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrParserRequired is returned by document ingestion without a document parser.
	ErrParserRequired = errors.New("document parser required")
)

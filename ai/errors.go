package ai

import "errors"

var (
	// ErrExtractionFailed indicates the extractor could not produce a usable record.
	ErrExtractionFailed = errors.New("candidate extraction failed")

	// ErrUnsupportedDocument indicates a document type no parser can read.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrEmptyDocument indicates a document that yielded no text.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrEmbeddingFailed wraps any failure to obtain an embedding.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch indicates the service returned vectors of a
	// different size than earlier calls.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

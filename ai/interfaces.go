package ai

import (
	"context"

	"github.com/poiesic/candidex/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Identical input must produce an identical vector for a given model.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor turns raw document text into a structured candidate record.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// ExtractCandidate populates every Candidate field it can find in text.
	// The returned record has no ID and no EmbeddingText; Name is always set
	// and Skills, Education and Experience are never nil.
	// Returns ErrExtractionFailed wrapped with the cause on failure.
	ExtractCandidate(ctx context.Context, text string) (*core.Candidate, error)
}

// DocumentParser turns a document on disk into plain or markdown text.
type DocumentParser interface {
	// ParseDocument reads the file at path and returns its text content.
	// Returns ErrUnsupportedDocument for file types it cannot read.
	ParseDocument(ctx context.Context, path string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the Embedder and Extractor instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Extractor returns the structured candidate extraction service.
	Extractor() Extractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

package storage

import (
	"context"

	"github.com/poiesic/candidex/core"
)

// CandidateRepository is the structured store and the source of truth for
// candidate existence. Implementations must be thread-safe and support
// concurrent access.
type CandidateRepository interface {
	// Put inserts a candidate atomically. Assigns a new ID when c.ID is empty
	// and CreatedAt when it is zero. Returns an error wrapping
	// core.ErrValidation if the name is empty. The record is visible to Get
	// and FuzzySearch as soon as Put returns.
	Put(ctx context.Context, c *core.Candidate) (core.ID, error)

	// Get retrieves a candidate by ID.
	// Returns ErrNotFound if the candidate doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Candidate, error)

	// Delete removes a candidate and its indices.
	// Returns false with a nil error when the candidate doesn't exist.
	Delete(ctx context.Context, id core.ID) (bool, error)

	// FuzzySearch scores candidates against the structured clauses of q.
	// Skills are a hard pre-filter; every other clause is soft. Results are
	// sorted by score descending then ID ascending, and q.Offset / q.Limit
	// are applied. A Limit <= 0 returns every match.
	FuzzySearch(ctx context.Context, q core.SearchQuery) ([]core.ScoredCandidate, error)

	// List returns candidates in ID order. A limit <= 0 returns everything
	// from offset on.
	List(ctx context.Context, offset, limit int) ([]*core.Candidate, error)

	// Count returns the number of stored candidates.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// Metadata is the denormalized, filterable tag set stored with an index entry.
type Metadata = core.TagFilter

// VectorMatch is one nearest-neighbor hit.
// Similarity is 1 - distance, so 1.0 means identical.
type VectorMatch struct {
	ID         core.ID
	Similarity float64
}

// IndexEntry describes a stored index document without its vector.
type IndexEntry struct {
	ID          core.ID
	Fingerprint string
}

// VectorIndex is the semantic store. Text is embedded by an injected
// embedder on both write and query. Implementations must be thread-safe.
type VectorIndex interface {
	// Upsert embeds text and stores it as the document for id, replacing
	// any previous document. Re-upserting the same id is idempotent.
	Upsert(ctx context.Context, id core.ID, text string, meta Metadata) error

	// Query embeds text and returns up to k entries ordered by similarity
	// descending then ID ascending. When filter is non-empty, only entries
	// carrying every listed tag are considered. Returns ErrInvalidQuery for
	// empty text or k <= 0.
	Query(ctx context.Context, text string, k int, filter *core.TagFilter) ([]VectorMatch, error)

	// Delete removes the document for id.
	// Returns false with a nil error when no document exists.
	Delete(ctx context.Context, id core.ID) (bool, error)

	// Entries lists every indexed document.
	Entries(ctx context.Context) ([]IndexEntry, error)

	// Close releases resources held by the index.
	Close() error
}

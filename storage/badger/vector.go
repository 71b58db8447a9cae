package badger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
)

// vectorDoc is the metadata stored alongside each index vector.
type vectorDoc struct {
	Fingerprint string           `json:"fingerprint"`
	Tags        storage.Metadata `json:"tags"`
	Dimension   int              `json:"dim"`
}

// VectorIndex implements storage.VectorIndex on BadgerDB with an exact
// cosine scan. Vectors are normalized on write so similarity is a dot product.
type VectorIndex struct {
	backend  *Backend
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a VectorIndex that embeds text with embedder.
func NewVectorIndex(backend *Backend, embedder ai.Embedder) (*VectorIndex, error) {
	if embedder == nil {
		return nil, errors.New("vector index requires an embedder")
	}
	return &VectorIndex{
		backend:  backend,
		embedder: embedder,
		logger:   slog.Default().With("component", "vector-index"),
	}, nil
}

// Close releases resources. The shared backend is closed by its owner.
func (v *VectorIndex) Close() error {
	return nil
}

// Upsert embeds text and replaces the document stored for id.
func (v *VectorIndex) Upsert(ctx context.Context, id core.ID, text string, meta storage.Metadata) error {
	if id == "" || strings.TrimSpace(text) == "" {
		return storage.ErrInvalidQuery
	}
	if v.backend.IsClosed() {
		return storage.Unavailable(storage.VectorIndexName, badger.ErrDBClosed)
	}

	vec, err := v.embedder.EmbedText(ctx, text)
	if err != nil {
		return storage.Unavailable(storage.VectorIndexName, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding", storage.ErrDimensionMismatch)
	}

	doc, err := json.Marshal(vectorDoc{
		Fingerprint: core.Fingerprint(text),
		Tags:        meta,
		Dimension:   len(vec),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	err = v.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVectorDocKey(id), doc); err != nil {
			return err
		}
		if err := tx.Set(makeVectorValueKey(id), storage.MarshalVector(storage.NormalizeVector(vec))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return classify(storage.VectorIndexName, err)
}

// Query embeds text and scans every stored vector.
func (v *VectorIndex) Query(ctx context.Context, text string, k int, filter *core.TagFilter) ([]storage.VectorMatch, error) {
	if strings.TrimSpace(text) == "" || k <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if v.backend.IsClosed() {
		return nil, storage.Unavailable(storage.VectorIndexName, badger.ErrDBClosed)
	}

	vec, err := v.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, storage.Unavailable(storage.VectorIndexName, err)
	}
	query := storage.NormalizeVector(vec)

	var matches []storage.VectorMatch
	err = v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorDocPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			id := idFromKey(item.Key(), vectorDocPrefix)

			var doc vectorDoc
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if !storage.MatchesFilter(doc.Tags, filter) {
				continue
			}
			if doc.Dimension != len(query) {
				v.logger.Warn("skipping entry with mismatched dimension",
					"id", id,
					"stored", doc.Dimension,
					"query", len(query))
				continue
			}

			stored, err := readVector(tx, id)
			if err != nil {
				return err
			}
			if stored == nil {
				continue
			}
			matches = append(matches, storage.VectorMatch{
				ID:         id,
				Similarity: 1 - storage.CosineDistance(query, stored),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, classify(storage.VectorIndexName, err)
	}

	slices.SortFunc(matches, func(a, b storage.VectorMatch) int {
		if a.Similarity != b.Similarity {
			return cmp.Compare(b.Similarity, a.Similarity)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes the document and vector for id.
func (v *VectorIndex) Delete(ctx context.Context, id core.ID) (bool, error) {
	deleted := false
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeVectorDocKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(makeVectorDocKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeVectorValueKey(id)); err != nil {
			return err
		}
		deleted = true
		return tx.Commit()
	}, true)
	if err != nil {
		return false, classify(storage.VectorIndexName, err)
	}
	return deleted, nil
}

// Entries lists every indexed document in ID order.
func (v *VectorIndex) Entries(ctx context.Context) ([]storage.IndexEntry, error) {
	var entries []storage.IndexEntry
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorDocPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var doc vectorDoc
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			entries = append(entries, storage.IndexEntry{
				ID:          idFromKey(item.KeyCopy(nil), vectorDocPrefix),
				Fingerprint: doc.Fingerprint,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, classify(storage.VectorIndexName, err)
	}
	return entries, nil
}

func readVector(tx *badger.Txn, id core.ID) ([]float32, error) {
	item, err := tx.Get(makeVectorValueKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var vec []float32
	err = item.Value(func(val []byte) error {
		var err error
		vec, err = storage.UnmarshalVector(val)
		return err
	})
	return vec, err
}

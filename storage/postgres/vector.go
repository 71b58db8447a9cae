package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VectorIndex implements storage.VectorIndex with pgvector cosine distance.
type VectorIndex struct {
	db       *gorm.DB
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// Close releases resources. The pool is closed by Stores.Close.
func (v *VectorIndex) Close() error {
	return nil
}

// Upsert embeds text and replaces the document stored for id.
func (v *VectorIndex) Upsert(ctx context.Context, id core.ID, text string, meta storage.Metadata) error {
	if id == "" || strings.TrimSpace(text) == "" {
		return storage.ErrInvalidQuery
	}

	vec, err := v.embedder.EmbedText(ctx, text)
	if err != nil {
		return storage.Unavailable(storage.VectorIndexName, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding", storage.ErrDimensionMismatch)
	}

	tags, err := json.Marshal(foldTags(meta))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	row := &embeddingRow{
		ID:          string(id),
		Fingerprint: core.Fingerprint(text),
		Tags:        datatypes.JSON(tags),
		Dimension:   len(vec),
		Embedding:   pgvector.NewVector(storage.NormalizeVector(vec)),
	}
	err = v.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"fingerprint", "tags", "dimension", "embedding", "updated_at"}),
		}).
		Create(row).Error
	return classify(storage.VectorIndexName, err)
}

// Query embeds text and returns the k nearest entries. Entries stored with a
// different dimension are excluded.
func (v *VectorIndex) Query(ctx context.Context, text string, k int, filter *core.TagFilter) ([]storage.VectorMatch, error) {
	if strings.TrimSpace(text) == "" || k <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	vec, err := v.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, storage.Unavailable(storage.VectorIndexName, err)
	}
	queryVector := pgvector.NewVector(storage.NormalizeVector(vec))

	type result struct {
		ID         string
		Similarity float64
	}
	var results []result

	query := v.db.WithContext(ctx).
		Table(embeddingRow{}.TableName()).
		Select("id, 1 - (embedding <=> ?) AS similarity", queryVector).
		Where("dimension = ?", len(vec))
	if !filter.Empty() {
		doc, err := filterJSON(filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		query = query.Where("tags @> ?", datatypes.JSON(doc))
	}

	err = query.
		Order("similarity DESC").
		Order("id ASC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, classify(storage.VectorIndexName, err)
	}

	matches := make([]storage.VectorMatch, len(results))
	for i, r := range results {
		matches[i] = storage.VectorMatch{ID: core.ID(r.ID), Similarity: r.Similarity}
	}
	return matches, nil
}

// Delete removes the document for id.
func (v *VectorIndex) Delete(ctx context.Context, id core.ID) (bool, error) {
	res := v.db.WithContext(ctx).Where("id = ?", string(id)).Delete(&embeddingRow{})
	if res.Error != nil {
		return false, classify(storage.VectorIndexName, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Entries lists every indexed document in ID order.
func (v *VectorIndex) Entries(ctx context.Context) ([]storage.IndexEntry, error) {
	var rows []embeddingRow
	err := v.db.WithContext(ctx).
		Select("id", "fingerprint").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classify(storage.VectorIndexName, err)
	}

	entries := make([]storage.IndexEntry, len(rows))
	for i, r := range rows {
		entries[i] = storage.IndexEntry{ID: core.ID(r.ID), Fingerprint: r.Fingerprint}
	}
	return entries, nil
}

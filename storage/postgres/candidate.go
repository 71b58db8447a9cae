package postgres

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/match"
	"github.com/poiesic/candidex/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CandidateRepository implements storage.CandidateRepository on PostgreSQL.
type CandidateRepository struct {
	db            *gorm.DB
	maxWorkingSet int
	logger        *slog.Logger
}

var _ storage.CandidateRepository = (*CandidateRepository)(nil)

// Close releases resources. The pool is closed by Stores.Close.
func (r *CandidateRepository) Close() error {
	return nil
}

// Put inserts or replaces a candidate.
func (r *CandidateRepository) Put(ctx context.Context, c *core.Candidate) (core.ID, error) {
	if err := core.ValidateCandidate(c); err != nil {
		return "", err
	}
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	row, err := toCandidateRow(c)
	if err != nil {
		return "", err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "document", "skills", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return "", classify(storage.CandidateStoreName, err)
	}
	return c.ID, nil
}

// Get retrieves a single candidate by ID.
func (r *CandidateRepository) Get(ctx context.Context, id core.ID) (*core.Candidate, error) {
	var row candidateRow
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error; err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}
	return row.toCandidate()
}

// Delete removes a candidate.
func (r *CandidateRepository) Delete(ctx context.Context, id core.ID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", string(id)).Delete(&candidateRow{})
	if res.Error != nil {
		return false, classify(storage.CandidateStoreName, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FuzzySearch loads a bounded working set, narrowed in SQL by the skills
// pre-filter, and ranks it with match.Rank.
func (r *CandidateRepository) FuzzySearch(ctx context.Context, q core.SearchQuery) ([]core.ScoredCandidate, error) {
	var rows []candidateRow
	if err := r.workingSet(r.db.WithContext(ctx), &q).Find(&rows).Error; err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}

	working, err := toCandidates(rows)
	if err != nil {
		return nil, err
	}

	results := match.Rank(&q, working)
	r.logger.Debug("fuzzy search",
		"working_set", len(working),
		"results", len(results))
	return results, nil
}

// workingSet narrows db to the candidates FuzzySearch scores.
func (r *CandidateRepository) workingSet(db *gorm.DB, q *core.SearchQuery) *gorm.DB {
	query := db.Model(&candidateRow{})
	if cond, args := skillFilter(q.Skills); cond != "" {
		query = query.Where(cond, args...)
	}
	return query.Order("id ASC").Limit(r.maxWorkingSet)
}

// skillFilter renders the any-skill pre-filter with one placeholder per
// skill. A single slice argument would be expanded by gorm into a row
// constructor, which jsonb_exists_any rejects.
func skillFilter(skills []string) (string, []any) {
	folded := foldAll(skills)
	if len(folded) == 0 {
		return "", nil
	}
	args := make([]any, len(folded))
	for i, s := range folded {
		args[i] = s
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(folded)), ",")
	return "jsonb_exists_any(skills, ARRAY[" + placeholders + "]::text[])", args
}

// List returns candidates in ID order.
func (r *CandidateRepository) List(ctx context.Context, offset, limit int) ([]*core.Candidate, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidQuery
	}
	query := r.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []candidateRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}
	return toCandidates(rows)
}

// Count returns the number of stored candidates.
func (r *CandidateRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&candidateRow{}).Count(&n).Error; err != nil {
		return 0, classify(storage.CandidateStoreName, err)
	}
	return int(n), nil
}

func toCandidates(rows []candidateRow) ([]*core.Candidate, error) {
	out := make([]*core.Candidate, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toCandidate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

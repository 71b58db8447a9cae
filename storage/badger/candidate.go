package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/match"
	"github.com/poiesic/candidex/storage"
)

// DefaultMaxWorkingSet bounds how many candidates one fuzzy search scores.
const DefaultMaxWorkingSet = 10000

// CandidateRepository implements storage.CandidateRepository for BadgerDB.
//
// Each candidate is stored as a JSON record under cand:<id>. A skill index
// (candsk:<folded skill>\x00<id>) backs the skills pre-filter so fuzzy
// searches with skills never scan the whole keyspace.
type CandidateRepository struct {
	backend       *Backend
	maxWorkingSet int
	logger        *slog.Logger
}

var _ storage.CandidateRepository = (*CandidateRepository)(nil)

// CandidateOption configures a CandidateRepository.
type CandidateOption func(*CandidateRepository) error

// WithMaxWorkingSet caps the number of candidates scored per fuzzy search.
func WithMaxWorkingSet(n int) CandidateOption {
	return func(r *CandidateRepository) error {
		if n <= 0 {
			return storage.ErrInvalidQuery
		}
		r.maxWorkingSet = n
		return nil
	}
}

// WithCandidateLogger sets the logger.
func WithCandidateLogger(logger *slog.Logger) CandidateOption {
	return func(r *CandidateRepository) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(backend *Backend, opts ...CandidateOption) (*CandidateRepository, error) {
	r := &CandidateRepository{
		backend:       backend,
		maxWorkingSet: DefaultMaxWorkingSet,
		logger:        slog.Default().With("component", "candidate-store"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Close releases resources. The shared backend is closed by its owner.
func (r *CandidateRepository) Close() error {
	return nil
}

// Put inserts or replaces a candidate in a single transaction.
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

	value, err := storage.MarshalCandidate(c)
	if err != nil {
		return "", err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCandidateKey(c.ID)

		// Replacing an existing record must drop its stale skill keys
		old, err := readCandidate(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			for _, skill := range old.Skills {
				if err := tx.Delete(makeSkillKey(skill, old.ID)); err != nil {
					return err
				}
			}
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		for _, skill := range c.Skills {
			if foldSkill(skill) == "" {
				continue
			}
			if err := tx.Set(makeSkillKey(skill, c.ID), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", classify(storage.CandidateStoreName, err)
	}
	return c.ID, nil
}

// Get retrieves a single candidate by ID.
func (r *CandidateRepository) Get(ctx context.Context, id core.ID) (*core.Candidate, error) {
	var result *core.Candidate
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCandidate(tx, makeCandidateKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}
	return result, nil
}

// Delete removes a candidate and its skill index keys.
func (r *CandidateRepository) Delete(ctx context.Context, id core.ID) (bool, error) {
	deleted := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCandidateKey(id)
		c, err := readCandidate(tx, key)
		if err != nil {
			return err
		}
		if c == nil {
			return nil
		}
		for _, skill := range c.Skills {
			if err := tx.Delete(makeSkillKey(skill, id)); err != nil {
				return err
			}
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		deleted = true
		return tx.Commit()
	}, true)
	if err != nil {
		return false, classify(storage.CandidateStoreName, err)
	}
	return deleted, nil
}

// FuzzySearch builds a bounded working set, pre-filtered by skills when the
// query has any, and ranks it with match.Rank.
func (r *CandidateRepository) FuzzySearch(ctx context.Context, q core.SearchQuery) ([]core.ScoredCandidate, error) {
	var working []*core.Candidate
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		if len(q.Skills) > 0 {
			working, err = r.workingSetBySkills(ctx, tx, q.Skills)
		} else {
			working, err = r.workingSetAll(ctx, tx)
		}
		return err
	}, false)
	if err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}

	results := match.Rank(&q, working)
	r.logger.Debug("fuzzy search",
		"working_set", len(working),
		"results", len(results))
	return results, nil
}

// workingSetBySkills reads every candidate holding at least one query skill,
// in ID order, up to the working set bound.
func (r *CandidateRepository) workingSetBySkills(ctx context.Context, tx *badger.Txn, skills []string) ([]*core.Candidate, error) {
	ids := make(map[core.ID]struct{})

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for _, skill := range skills {
		if foldSkill(skill) == "" {
			continue
		}
		prefix := makePartialSkillKey(skill)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ids[idFromKey(iter.Item().Key(), string(prefix))] = struct{}{}
		}
	}

	sorted := make([]core.ID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	slices.Sort(sorted)
	if len(sorted) > r.maxWorkingSet {
		r.logger.Warn("fuzzy working set truncated", "matched", len(sorted), "max", r.maxWorkingSet)
		sorted = sorted[:r.maxWorkingSet]
	}

	working := make([]*core.Candidate, 0, len(sorted))
	for _, id := range sorted {
		c, err := readCandidate(tx, makeCandidateKey(id))
		if err != nil {
			return nil, err
		}
		if c != nil {
			working = append(working, c)
		}
	}
	return working, nil
}

// workingSetAll reads candidates in ID order up to the working set bound.
func (r *CandidateRepository) workingSetAll(ctx context.Context, tx *badger.Txn) ([]*core.Candidate, error) {
	var working []*core.Candidate
	err := scanCandidates(ctx, tx, func(c *core.Candidate) bool {
		working = append(working, c)
		return len(working) < r.maxWorkingSet
	})
	return working, err
}

// List returns candidates in ID order.
func (r *CandidateRepository) List(ctx context.Context, offset, limit int) ([]*core.Candidate, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidQuery
	}
	var out []*core.Candidate
	skipped := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanCandidates(ctx, tx, func(c *core.Candidate) bool {
			if skipped < offset {
				skipped++
				return true
			}
			out = append(out, c)
			return limit <= 0 || len(out) < limit
		})
	}, false)
	if err != nil {
		return nil, classify(storage.CandidateStoreName, err)
	}
	return out, nil
}

// Count returns the number of stored candidates.
func (r *CandidateRepository) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(candidatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	}, false)
	if err != nil {
		return 0, classify(storage.CandidateStoreName, err)
	}
	return n, nil
}

// scanCandidates calls fn for each candidate in key order until fn returns false.
func scanCandidates(ctx context.Context, tx *badger.Txn, fn func(*core.Candidate) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(candidatePrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var c *core.Candidate
		err := iter.Item().Value(func(val []byte) error {
			var err error
			c, err = storage.UnmarshalCandidate(val)
			return err
		})
		if err != nil {
			return err
		}
		if !fn(c) {
			return nil
		}
	}
	return nil
}

// readCandidate returns nil, nil when the key does not exist.
func readCandidate(tx *badger.Txn, key []byte) (*core.Candidate, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var c *core.Candidate
	err = item.Value(func(val []byte) error {
		var err error
		c, err = storage.UnmarshalCandidate(val)
		return err
	})
	return c, err
}

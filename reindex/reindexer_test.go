package reindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/candidex/ai/mock"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"github.com/poiesic/candidex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyIndex fails upserts for the listed IDs.
type flakyIndex struct {
	storage.VectorIndex
	fail map[core.ID]bool
}

func (f *flakyIndex) Upsert(ctx context.Context, id core.ID, text string, meta storage.Metadata) error {
	if f.fail[id] {
		return storage.Unavailable(storage.VectorIndexName, errors.New("connection reset"))
	}
	return f.VectorIndex.Upsert(ctx, id, text, meta)
}

// shiftedStore drops the listed IDs from List pages, the way a concurrent
// delete ahead of the cursor pushes a live candidate into an already-read page.
type shiftedStore struct {
	storage.CandidateRepository
	hidden map[core.ID]bool
}

func (s *shiftedStore) List(ctx context.Context, offset, limit int) ([]*core.Candidate, error) {
	page, err := s.CandidateRepository.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := page[:0]
	for _, c := range page {
		if !s.hidden[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		Workers:        2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

// seed stores n candidates, indexing only those for which indexed returns true.
func seed(t *testing.T, stores *badger.Stores, n int, indexed func(i int) bool) []*core.Candidate {
	t.Helper()
	ctx := context.Background()

	out := make([]*core.Candidate, 0, n)
	for i := range n {
		c := &core.Candidate{
			ID:     core.ID(fmt.Sprintf("cand-%02d", i)),
			Name:   fmt.Sprintf("Person %d", i),
			Skills: []string{"Go", "SQL"},
		}
		_, err := stores.Candidates.Put(ctx, c)
		require.NoError(t, err)
		if indexed(i) {
			require.NoError(t, stores.Index.Upsert(ctx, c.ID, core.BuildEmbeddingText(c), c.Tags()))
		}
		out = append(out, c)
	}
	return out
}

func entryMap(t *testing.T, index storage.VectorIndex) map[core.ID]string {
	t.Helper()
	entries, err := index.Entries(context.Background())
	require.NoError(t, err)
	m := make(map[core.ID]string, len(entries))
	for _, e := range entries {
		m[e.ID] = e.Fingerprint
	}
	return m
}

func TestNewReindexer(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())

	t.Run("nil config uses defaults", func(t *testing.T) {
		r, err := NewReindexer(stores.Candidates, stores.Index, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), r.config)
	})

	t.Run("nil candidate store", func(t *testing.T) {
		_, err := NewReindexer(nil, stores.Index, nil, nil)
		assert.Equal(t, ErrCandidateStoreRequired, err)
	})

	t.Run("nil vector index", func(t *testing.T) {
		_, err := NewReindexer(stores.Candidates, nil, nil, nil)
		assert.Equal(t, ErrVectorIndexRequired, err)
	})

	t.Run("invalid retries", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRetries = 0
		_, err := NewReindexer(stores.Candidates, stores.Index, cfg, nil)
		assert.Equal(t, ErrInvalidMaxAttempts, err)
	})
}

func TestRun_RepairsMissingEntries(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	candidates := seed(t, stores, 8, func(i int) bool { return i%2 == 0 })

	var progress bytes.Buffer
	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), &progress)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Scanned)
	assert.Equal(t, 4, report.Upserted)
	assert.Equal(t, 4, report.Unchanged)
	assert.Zero(t, report.OrphansRemoved)
	assert.Empty(t, report.Failures)

	entries := entryMap(t, stores.Index)
	require.Len(t, entries, 8)
	for _, c := range candidates {
		assert.Equal(t, core.Fingerprint(core.BuildEmbeddingText(c)), entries[c.ID])
	}
	assert.Contains(t, progress.String(), "8/8 candidates")
}

func TestRun_RefreshesStaleFingerprint(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	candidates := seed(t, stores, 2, func(int) bool { return true })
	ctx := context.Background()

	stale := candidates[1]
	require.NoError(t, stores.Index.Upsert(ctx, stale.ID, "outdated text", stale.Tags()))

	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), nil)
	require.NoError(t, err)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upserted)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, core.Fingerprint(core.BuildEmbeddingText(stale)), entryMap(t, stores.Index)[stale.ID])
}

func TestRun_RemovesOrphans(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	seed(t, stores, 2, func(int) bool { return true })
	ctx := context.Background()

	require.NoError(t, stores.Index.Upsert(ctx, "ghost-1", "Ghost One", storage.Metadata{}))
	require.NoError(t, stores.Index.Upsert(ctx, "ghost-2", "Ghost Two", storage.Metadata{}))

	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), nil)
	require.NoError(t, err)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.OrphansRemoved)

	entries := entryMap(t, stores.Index)
	assert.Len(t, entries, 2)
	assert.NotContains(t, entries, core.ID("ghost-1"))
	assert.NotContains(t, entries, core.ID("ghost-2"))
}

func TestRun_KeepsCandidatesMissedByPaging(t *testing.T) {
	tests := []struct {
		name         string
		stale        bool
		wantUpserted int
	}{
		{"current entry", false, 0},
		{"stale entry", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
			candidates := seed(t, stores, 4, func(int) bool { return true })
			ctx := context.Background()

			missed := candidates[1]
			if tt.stale {
				require.NoError(t, stores.Index.Upsert(ctx, missed.ID, "outdated text", missed.Tags()))
			}
			require.NoError(t, stores.Index.Upsert(ctx, "ghost", "Ghost", storage.Metadata{}))

			store := &shiftedStore{CandidateRepository: stores.Candidates, hidden: map[core.ID]bool{missed.ID: true}}
			cfg := testConfig()
			cfg.BatchSize = 10
			r, err := NewReindexer(store, stores.Index, cfg, nil)
			require.NoError(t, err)

			report, err := r.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.OrphansRemoved)
			assert.Equal(t, 4, report.Scanned)
			assert.Equal(t, tt.wantUpserted, report.Upserted)

			entries := entryMap(t, stores.Index)
			assert.NotContains(t, entries, core.ID("ghost"))
			assert.Equal(t, core.Fingerprint(core.BuildEmbeddingText(missed)), entries[missed.ID])
			assert.Len(t, entries, 4)
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	seed(t, stores, 5, func(i int) bool { return i == 0 })
	ctx := context.Background()

	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), nil)
	require.NoError(t, err)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Upserted)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Upserted)
	assert.Equal(t, 5, second.Unchanged)
	assert.Zero(t, second.OrphansRemoved)
}

func TestRun_Force(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	stores := badger.NewMemoryStores(t, embedder)
	seed(t, stores, 4, func(int) bool { return true })
	embedder.Reset()

	cfg := testConfig()
	cfg.Force = true
	r, err := NewReindexer(stores.Candidates, stores.Index, cfg, nil)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Upserted)
	assert.Zero(t, report.Unchanged)
	assert.Equal(t, 4, embedder.CallCount())
}

func TestRun_EmptyStore(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())

	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), nil)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Zero(t, report.Upserted)
}

func TestRun_FailuresAreCollected(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	seed(t, stores, 5, func(int) bool { return false })

	index := &flakyIndex{
		VectorIndex: stores.Index,
		fail:        map[core.ID]bool{"cand-01": true, "cand-03": true},
	}
	r, err := NewReindexer(stores.Candidates, index, testConfig(), nil)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	require.NotNil(t, report)
	assert.Equal(t, 3, report.Upserted)
	require.Len(t, report.Failures, 2)

	failed := map[core.ID]bool{}
	for _, f := range report.Failures {
		failed[f.ID] = true
		assert.Equal(t, "upsert", f.Op)
		assert.ErrorIs(t, f.Err, storage.ErrUnavailable)
	}
	assert.Equal(t, map[core.ID]bool{"cand-01": true, "cand-03": true}, failed)

	// The healthy candidates were still repaired
	assert.Len(t, entryMap(t, stores.Index), 3)
}

func TestRun_CanceledContext(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	seed(t, stores, 3, func(int) bool { return false })

	r, err := NewReindexer(stores.Candidates, stores.Index, testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

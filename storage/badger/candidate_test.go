package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/candidex/ai/mock"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCandidate(id, name string, skills []string, companies ...string) *core.Candidate {
	c := &core.Candidate{
		ID:     core.ID(id),
		Name:   name,
		Skills: skills,
	}
	for _, co := range companies {
		c.Experience = append(c.Experience, core.Experience{Company: co, Role: "Engineer"})
	}
	return c
}

func TestCandidateRepository_PutGet(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	c := &core.Candidate{Name: "Dana Lee", Skills: []string{"Python"}}
	id, err := stores.Candidates.Put(ctx, c)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := stores.Candidates.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dana Lee", got.Name)
	assert.Equal(t, []string{"Python"}, got.Skills)
}

func TestCandidateRepository_PutValidation(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())

	_, err := stores.Candidates.Put(context.Background(), &core.Candidate{Name: "   "})
	assert.ErrorIs(t, err, core.ErrValidation)

	n, err := stores.Candidates.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCandidateRepository_GetMissing(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())

	_, err := stores.Candidates.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandidateRepository_Delete(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	id, err := stores.Candidates.Put(ctx, newCandidate("", "Dana Lee", []string{"Go"}))
	require.NoError(t, err)

	deleted, err := stores.Candidates.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = stores.Candidates.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = stores.Candidates.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	q := core.NewSearchQuery()
	q.Skills = []string{"go"}
	results, err := stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCandidateRepository_ReplaceClearsStaleSkills(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	_, err := stores.Candidates.Put(ctx, newCandidate("c1", "Dana Lee", []string{"Java"}))
	require.NoError(t, err)
	_, err = stores.Candidates.Put(ctx, newCandidate("c1", "Dana Lee", []string{"Python"}))
	require.NoError(t, err)

	q := core.NewSearchQuery()
	q.Skills = []string{"java"}
	results, err := stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, results)

	q.Skills = []string{"PYTHON"}
	results, err = stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID("c1"), results[0].Candidate.ID)

	n, err := stores.Candidates.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCandidateRepository_FuzzySearch(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	for _, c := range []*core.Candidate{
		newCandidate("a", "Ann", []string{"Python", "SQL"}, "Acme Corp"),
		newCandidate("b", "Bob", []string{"Python"}, "Globex"),
		newCandidate("c", "Cy", []string{"Rust"}, "Acme"),
	} {
		_, err := stores.Candidates.Put(ctx, c)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		query   func(q *core.SearchQuery)
		wantIDs []core.ID
	}{
		{
			name:    "any skill pre-filter",
			query:   func(q *core.SearchQuery) { q.Skills = []string{"python", "sql"} },
			wantIDs: []core.ID{"a", "b"},
		},
		{
			name: "match all skills",
			query: func(q *core.SearchQuery) {
				q.Skills = []string{"python", "sql"}
				q.MatchAllSkills = true
			},
			wantIDs: []core.ID{"a"},
		},
		{
			name:    "company without skills scans everything",
			query:   func(q *core.SearchQuery) { q.Companies = []string{"acme"} },
			wantIDs: []core.ID{"c"},
		},
		{
			name:    "near company name",
			query:   func(q *core.SearchQuery) { q.Companies = []string{"acme corps"} },
			wantIDs: []core.ID{"a"},
		},
		{
			name: "skills and company",
			query: func(q *core.SearchQuery) {
				q.Skills = []string{"rust"}
				q.Companies = []string{"globex"}
			},
			wantIDs: []core.ID{"c"},
		},
		{
			name:    "unknown skill",
			query:   func(q *core.SearchQuery) { q.Skills = []string{"cobol"} },
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := core.NewSearchQuery()
			tt.query(&q)

			results, err := stores.Candidates.FuzzySearch(ctx, q)
			require.NoError(t, err)

			var ids []core.ID
			for _, r := range results {
				ids = append(ids, r.Candidate.ID)
				assert.Greater(t, r.Score, 0.0)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCandidateRepository_FuzzySearchPagination(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	for i := range 5 {
		_, err := stores.Candidates.Put(ctx, newCandidate(fmt.Sprintf("c%d", i), "Person", []string{"Go"}))
		require.NoError(t, err)
	}

	q := core.NewSearchQuery()
	q.Skills = []string{"go"}
	q.Offset = 1
	q.Limit = 2
	results, err := stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Equal scores are ordered by ID
	assert.Equal(t, core.ID("c1"), results[0].Candidate.ID)
	assert.Equal(t, core.ID("c2"), results[1].Candidate.ID)

	q.Offset = 10
	results, err = stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCandidateRepository_MaxWorkingSet(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder(), WithMaxWorkingSet(2))
	ctx := context.Background()

	for i := range 4 {
		_, err := stores.Candidates.Put(ctx, newCandidate(fmt.Sprintf("c%d", i), "Person", []string{"Go"}))
		require.NoError(t, err)
	}

	q := core.NewSearchQuery()
	q.Skills = []string{"go"}
	q.Limit = 0
	results, err := stores.Candidates.FuzzySearch(ctx, q)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = NewCandidateRepository(stores.Backend, WithMaxWorkingSet(0))
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCandidateRepository_ListCount(t *testing.T) {
	stores := NewMemoryStores(t, mock.NewMockEmbedder())
	ctx := context.Background()

	for _, id := range []string{"c3", "c1", "c2"} {
		_, err := stores.Candidates.Put(ctx, newCandidate(id, "Person "+id, nil))
		require.NoError(t, err)
	}

	n, err := stores.Candidates.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := stores.Candidates.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.ID("c1"), all[0].ID)
	assert.Equal(t, core.ID("c3"), all[2].ID)

	page, err := stores.Candidates.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, core.ID("c2"), page[0].ID)

	_, err = stores.Candidates.List(ctx, -1, 1)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

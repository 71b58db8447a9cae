package candidex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/candidex/ai/mock"
	"github.com/poiesic/candidex/config"
	"github.com/poiesic/candidex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "test_db")
	cfg.AI.Provider = config.ProviderMock
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		db, err := Open(context.Background(), testConfig(t))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.CandidateRepository())
		assert.NotNil(t, db.VectorIndex())
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := testConfig(t)
		cfg.Storage.Path = tmpFile
		db, err := Open(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = "sqlite"
		_, err := Open(context.Background(), cfg)
		assert.ErrorContains(t, err, "unknown storage driver")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.Provider = "magic"
		_, err := Open(context.Background(), cfg)
		assert.ErrorContains(t, err, "unknown AI provider")
	})
}

func TestDatabase_Close(t *testing.T) {
	provider := mock.NewMockProviderWithServices(nil, nil)
	db, err := Open(context.Background(), testConfig(t), WithProvider(provider))
	require.NoError(t, err)
	assert.NoError(t, db.Close())
	assert.Equal(t, 1, provider.CloseCount())
}

func TestOpen_ClosesProviderOnStoreFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	provider := mock.NewMockProviderWithServices(nil, nil)

	_, err := Open(context.Background(), cfg, WithProvider(provider))
	require.Error(t, err)
	assert.Equal(t, 1, provider.CloseCount())
}

func TestDatabase_EndToEnd(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockExtractor())

	db, err := Open(context.Background(), testConfig(t), WithProvider(provider))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	svc, in, err := db.NewService()
	require.NoError(t, err)
	defer in.Release()

	res, err := svc.IngestCandidate(ctx, &core.Candidate{
		Name:       "Dana Lee",
		Skills:     []string{"Python", "SQL"},
		Experience: []core.Experience{{Company: "Acme Corp", Role: "Data Engineer"}},
	})
	require.NoError(t, err)
	require.True(t, res.Indexed())

	q := core.NewSearchQuery()
	q.Text = "data engineer"
	q.Companies = []string{"Acme Corp"}
	q.Skills = []string{"python"}

	resp, err := svc.Search(ctx, q)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, res.ID, resp.Results[0].Candidate.ID)

	// The second identical query is served from the result cache, and
	// the query embedding from the embedding cache
	calls := embedder.CallCount()
	_, err = svc.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, calls, embedder.CallCount())

	// Deleting through the service invalidates the cached result
	_, err = svc.DeleteCandidate(ctx, res.ID)
	require.NoError(t, err)
	resp, err = svc.Search(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestDatabase_Reindex(t *testing.T) {
	db, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	// Written to the candidate store only, as after a failed index write
	_, err = db.CandidateRepository().Put(ctx, &core.Candidate{Name: "Raj Patel", Skills: []string{"Go"}})
	require.NoError(t, err)

	r, err := db.NewReindexer(nil, false)
	require.NoError(t, err)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upserted)

	entries, err := db.VectorIndex().Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

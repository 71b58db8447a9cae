// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package candidex wires the candidate store, vector index and AI services
// into one handle from which searchers, ingesters and repair passes are built.
package candidex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/ai/cache"
	"github.com/poiesic/candidex/ai/document"
	"github.com/poiesic/candidex/ai/mock"
	"github.com/poiesic/candidex/ai/openai"
	"github.com/poiesic/candidex/config"
	"github.com/poiesic/candidex/ingestion"
	"github.com/poiesic/candidex/metrics"
	"github.com/poiesic/candidex/reindex"
	"github.com/poiesic/candidex/search"
	"github.com/poiesic/candidex/storage"
	"github.com/poiesic/candidex/storage/badger"
	"github.com/poiesic/candidex/storage/postgres"
	"github.com/poiesic/candidex/tools"
)

type Database struct {
	config     config.Config
	candidates storage.CandidateRepository
	index      storage.VectorIndex
	closeStore func() error
	provider   ai.AIProvider
	embedder   *cache.CachedEmbedder
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider supplies the AI provider instead of building one from the
// configuration. The Database takes ownership and closes it.
func WithProvider(p ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = p
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open builds the AI provider and opens the configured storage backend.
func Open(ctx context.Context, cfg config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = newProvider(cfg, options.logger)
		if err != nil {
			return nil, err
		}
	}

	embedder := cache.New(provider.Embedder(),
		cache.WithTTL(cfg.AI.EmbeddingCacheTTL),
		cache.WithCounter(metrics.EmbeddingCacheTotal),
		cache.WithLogger(options.logger))

	db := &Database{
		config:   cfg,
		provider: provider,
		embedder: embedder,
		logger:   options.logger,
	}

	switch cfg.Storage.Driver {
	case config.DriverBadger, "":
		stores, err := badger.OpenStores(cfg.Storage.Path, embedder, badger.StoreOptions{
			Backend: []badger.BackendOption{
				badger.WithBackendLogger(options.logger),
				badger.WithCompression(cfg.Storage.Compression),
				badger.WithSyncWrites(cfg.Storage.SyncWrites),
			},
			Candidates: []badger.CandidateOption{
				badger.WithMaxWorkingSet(maxWorkingSet(cfg)),
				badger.WithCandidateLogger(options.logger),
			},
		})
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("failed to open badger stores: %w", err)
		}
		db.candidates, db.index, db.closeStore = stores.Candidates, stores.Index, stores.Close
	case config.DriverPostgres:
		stores, err := postgres.Open(ctx, cfg.Storage.DSN, embedder,
			postgres.WithMaxWorkingSet(maxWorkingSet(cfg)),
			postgres.WithLogger(options.logger))
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("failed to open postgres stores: %w", err)
		}
		db.candidates, db.index, db.closeStore = stores.Candidates, stores.Index, stores.Close
	default:
		provider.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return db, nil
}

func newProvider(cfg config.Config, logger *slog.Logger) (ai.AIProvider, error) {
	switch cfg.AI.Provider {
	case config.ProviderMock:
		return mock.NewMockProvider(), nil
	case config.ProviderOpenAI, "":
		return openai.NewProvider(cfg.AIConfig(), openai.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

func maxWorkingSet(cfg config.Config) int {
	if cfg.Storage.MaxWorkingSet > 0 {
		return cfg.Storage.MaxWorkingSet
	}
	return postgres.DefaultMaxWorkingSet
}

func (db *Database) Close() error {
	var errs []error

	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}

	if err := db.closeStore(); err != nil {
		db.logger.Error("error closing stores", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Ping checks that the candidate store answers.
func (db *Database) Ping(ctx context.Context) error {
	_, err := db.candidates.Count(ctx)
	return err
}

func (db *Database) CandidateRepository() storage.CandidateRepository {
	return db.candidates
}

func (db *Database) VectorIndex() storage.VectorIndex {
	return db.index
}

func (db *Database) Config() config.Config {
	return db.config
}

// NewSearcher builds a searcher using the configured timeout, result cache
// and Prometheus monitor. opts are applied last.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(db.logger),
		search.WithTimeout(db.config.Search.Timeout),
		search.WithMonitor(metrics.SearchMonitor{}),
	}
	if db.config.Search.ResultCacheTTL > 0 {
		base = append(base, search.WithResultCache(db.config.Search.ResultCacheTTL))
	}
	return search.NewSearcher(db.candidates, db.index, append(base, opts...)...)
}

// NewIngester builds an ingester with the provider's extractor and the
// langchaingo document parser. opts are applied last.
func (db *Database) NewIngester(opts ...ingestion.Option) (*ingestion.Ingester, error) {
	base := []ingestion.Option{
		ingestion.WithLogger(db.logger),
		ingestion.WithPoolSize(db.config.Ingestion.PoolSize),
		ingestion.WithExtractor(db.provider.Extractor()),
		ingestion.WithDocumentParser(document.NewParser(document.WithLogger(db.logger))),
	}
	return ingestion.NewIngester(db.candidates, db.index, append(base, opts...)...)
}

// NewReindexer builds a repair pass from the reindex section of the configuration.
func (db *Database) NewReindexer(progress io.Writer, force bool) (*reindex.Reindexer, error) {
	rc := db.config.Reindex
	return reindex.NewReindexer(db.candidates, db.index, &reindex.Config{
		BatchSize:      rc.BatchSize,
		Workers:        rc.Workers,
		ReportInterval: rc.ReportInterval,
		MaxRetries:     rc.MaxRetries,
		RetryDelay:     rc.RetryDelay,
		Force:          force,
	}, progress)
}

// NewService builds the named-operation surface. The searcher is wired as
// the ingester's invalidator so cached results never outlive a write.
// The caller must Release the returned ingester.
func (db *Database) NewService() (*tools.Service, *ingestion.Ingester, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, nil, err
	}
	in, err := db.NewIngester(ingestion.WithInvalidator(searcher))
	if err != nil {
		return nil, nil, err
	}
	svc, err := tools.NewService(searcher, db.candidates, tools.WithWriter(in), tools.WithLogger(db.logger))
	if err != nil {
		in.Release()
		return nil, nil, err
	}
	return svc, in, nil
}

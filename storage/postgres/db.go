package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/storage"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Stores bundles the candidate repository and vector index that share one
// connection pool.
type Stores struct {
	DB         *gorm.DB
	Candidates *CandidateRepository
	Index      *VectorIndex
}

// Open connects to PostgreSQL, enables pgvector and migrates both tables.
func Open(ctx context.Context, dsn string, embedder ai.Embedder, opts ...Option) (*Stores, error) {
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, storage.Unavailable(storage.CandidateStoreName, err)
	}

	stores, err := NewStores(ctx, db, embedder, opts...)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return stores, nil
}

// NewStores builds both stores on an existing gorm handle.
func NewStores(ctx context.Context, db *gorm.DB, embedder ai.Embedder, opts ...Option) (*Stores, error) {
	if embedder == nil {
		return nil, errors.New("vector index requires an embedder")
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	o := options{
		maxWorkingSet: DefaultMaxWorkingSet,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	return &Stores{
		DB: db,
		Candidates: &CandidateRepository{
			db:            db,
			maxWorkingSet: o.maxWorkingSet,
			logger:        o.logger.With("component", "candidate-store"),
		},
		Index: &VectorIndex{
			db:       db,
			embedder: embedder,
			logger:   o.logger.With("component", "vector-index"),
		},
	}, nil
}

// Migrate enables the vector extension and creates the tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return storage.Unavailable(storage.VectorIndexName, err)
	}
	if err := tx.AutoMigrate(&candidateRow{}, &embeddingRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Stores) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DefaultMaxWorkingSet bounds how many candidates one fuzzy search scores.
const DefaultMaxWorkingSet = 10000

type options struct {
	maxWorkingSet int
	logger        *slog.Logger
}

// Option configures the postgres stores.
type Option func(*options) error

// WithMaxWorkingSet caps the number of candidates scored per fuzzy search.
func WithMaxWorkingSet(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return storage.ErrInvalidQuery
		}
		o.maxWorkingSet = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// classify maps gorm failures onto the storage error taxonomy.
func classify(store string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return storage.Unavailable(store, err)
	}
}

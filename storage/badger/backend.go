package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/candidex/storage"
)

// DefaultConflictRetries is how many times a write transaction is replayed
// after badger reports a conflicting concurrent write.
const DefaultConflictRetries = 3

// Backend owns the BadgerDB instance shared by the candidate repository and
// the vector index. Both stores live in one keyspace, separated by prefix.
type Backend struct {
	db              *badger.DB
	conflictRetries int
	logger          *slog.Logger
}

// BackendOption configures OpenBackend.
type BackendOption func(*backendConfig)

type backendConfig struct {
	logger          *slog.Logger
	compression     options.CompressionType
	syncWrites      bool
	conflictRetries int
}

// WithBackendLogger routes badger's own log output through logger.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(c *backendConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCompression enables ZSTD block compression. Resume raw text and
// embedding documents compress well; vectors do not.
func WithCompression(enabled bool) BackendOption {
	return func(c *backendConfig) {
		if enabled {
			c.compression = options.ZSTD
		} else {
			c.compression = options.None
		}
	}
}

// WithSyncWrites fsyncs every commit.
func WithSyncWrites(enabled bool) BackendOption {
	return func(c *backendConfig) {
		c.syncWrites = enabled
	}
}

// WithConflictRetries sets how often a conflicting write is replayed.
// Zero disables retries.
func WithConflictRetries(n int) BackendOption {
	return func(c *backendConfig) {
		if n >= 0 {
			c.conflictRetries = n
		}
	}
}

// slogAdapter satisfies badger.Logger. Badger is chatty at info level, so
// its info output is demoted to debug.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Errorf(msg string, items ...any) {
	a.logger.Error(fmt.Sprintf(msg, items...))
}

func (a *slogAdapter) Warningf(msg string, items ...any) {
	a.logger.Warn(fmt.Sprintf(msg, items...))
}

func (a *slogAdapter) Infof(msg string, items ...any) {
	a.logger.Debug(fmt.Sprintf(msg, items...))
}

func (a *slogAdapter) Debugf(msg string, items ...any) {
	a.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens the database directory at path, creating it when
// missing. With inMemory set, path is ignored and nothing touches disk.
func OpenBackend(path string, inMemory bool, opts ...BackendOption) (*Backend, error) {
	cfg := backendConfig{
		logger:          slog.Default(),
		compression:     options.None,
		conflictRetries: DefaultConflictRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("component", "badger")

	var bopts badger.Options
	if inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		bopts = badger.DefaultOptions(path).WithSyncWrites(cfg.syncWrites)
	}
	bopts = bopts.
		WithLogger(&slogAdapter{logger: logger}).
		WithCompression(cfg.compression)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	logger.Debug("backend opened", "path", path, "in_memory", inMemory)

	return &Backend{
		db:              db,
		conflictRetries: cfg.conflictRetries,
		logger:          logger,
	}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Close closes the database. Closing twice is a no-op.
func (b *Backend) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn in a fresh transaction that is always discarded afterwards.
// For write transactions fn must call Commit; when the commit loses to a
// concurrent writer fn is replayed on a new transaction, up to the configured
// number of retries. A closed database yields badger.ErrDBClosed without
// calling fn.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	for attempt := 0; ; attempt++ {
		if b.db.IsClosed() {
			return badger.ErrDBClosed
		}
		err := b.runTx(fn, isWrite)
		if !isWrite || !errors.Is(err, badger.ErrConflict) || attempt >= b.conflictRetries {
			return err
		}
		b.logger.Debug("write conflict, retrying", "attempt", attempt+1)
	}
}

func (b *Backend) runTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// classify maps backend-level failures onto the storage error taxonomy for
// the named store. Domain errors pass through untouched.
func classify(store string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrDBClosed):
		return storage.Unavailable(store, err)
	default:
		return err
	}
}

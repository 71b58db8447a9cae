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


package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
)

// Config holds configuration for the repair pass.
type Config struct {
	// BatchSize is the number of candidates read from the store per page
	BatchSize int

	// Workers is the number of concurrent index writes
	Workers int

	// ReportInterval is how often to report progress (number of candidates)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each index write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Force re-upserts every candidate, even when its entry is current
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		Workers:        4,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Failure records one candidate the pass could not repair.
type Failure struct {
	ID  core.ID
	Op  string
	Err error
}

// Report summarizes a repair pass.
type Report struct {
	Scanned        int
	Upserted       int
	Unchanged      int
	OrphansRemoved int
	Failures       []Failure
	Elapsed        time.Duration
}

// Reindexer reconciles the vector index with the candidate store.
type Reindexer struct {
	store    storage.CandidateRepository
	index    storage.VectorIndex
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr); nil disables it.
func NewReindexer(store storage.CandidateRepository, index storage.VectorIndex, config *Config, progress io.Writer) (*Reindexer, error) {
	if store == nil {
		return nil, ErrCandidateStoreRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	return &Reindexer{
		store:    store,
		index:    index,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindex"),
	}, nil
}

// Run executes one repair pass.
//
// Candidates whose index entry is missing, or whose fingerprint differs from
// that of their current embedding text, are re-upserted. Index entries with
// no candidate are deleted. Individual failures do not stop the pass; they
// are collected in the Report and Run returns ErrIncomplete.
func (r *Reindexer) Run(ctx context.Context) (*Report, error) {
	entries, err := r.index.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list index entries: %w", err)
	}
	indexed := make(map[core.ID]string, len(entries))
	for _, e := range entries {
		indexed[e.ID] = e.Fingerprint
	}

	total, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	if r.progress != nil {
		fmt.Fprintf(r.progress, "Reindexing %d candidates against %d index entries (batch size: %d)\n",
			total, len(entries), r.config.BatchSize)
	}
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	var (
		report = &Report{}
		mu     sync.Mutex
		seen   = make(map[core.ID]struct{}, total)
	)
	fail := func(id core.ID, op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failures = append(report.Failures, Failure{ID: id, Op: op, Err: err})
		r.logger.Warn("repair failed", "id", id, "op", op, "err", err)
	}

	for offset := 0; ; offset += r.config.BatchSize {
		page, err := r.store.List(ctx, offset, r.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list candidates at offset %d: %w", offset, err)
		}

		var wg sync.WaitGroup
		for _, c := range page {
			seen[c.ID] = struct{}{}
			report.Scanned++

			text := core.BuildEmbeddingText(c)
			if fp, ok := indexed[c.ID]; ok && fp == core.Fingerprint(text) && !r.config.Force {
				report.Unchanged++
				continue
			}

			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				err := RetryWithBackoff(ctx, r.config.MaxRetries, r.config.RetryDelay, func(ctx context.Context) error {
					return r.index.Upsert(ctx, c.ID, text, c.Tags())
				})
				if err != nil {
					fail(c.ID, "upsert", err)
					return
				}
				mu.Lock()
				report.Upserted++
				mu.Unlock()
			})
			if submitErr != nil {
				wg.Done()
				fail(c.ID, "upsert", submitErr)
			}
		}
		wg.Wait()
		tracker.Increment(len(page))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(page) < r.config.BatchSize {
			break
		}
	}

	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		// Offset pages shift under concurrent deletes, so an entry the scan
		// never reached is only an orphan once its candidate is confirmed gone.
		c, err := r.store.Get(ctx, e.ID)
		switch {
		case err == nil:
			r.repairMissed(ctx, c, e.Fingerprint, report, fail)
			continue
		case !errors.Is(err, storage.ErrNotFound):
			fail(e.ID, "delete", err)
			continue
		}
		err = RetryWithBackoff(ctx, r.config.MaxRetries, r.config.RetryDelay, func(ctx context.Context) error {
			_, err := r.index.Delete(ctx, e.ID)
			return err
		})
		if err != nil {
			fail(e.ID, "delete", err)
			continue
		}
		report.OrphansRemoved++
	}

	tracker.Finish()
	report.Elapsed = tracker.Elapsed()

	r.logger.Info("reindex complete",
		"scanned", report.Scanned,
		"upserted", report.Upserted,
		"unchanged", report.Unchanged,
		"orphans_removed", report.OrphansRemoved,
		"failures", len(report.Failures),
		"elapsed", report.Elapsed.Round(time.Millisecond))

	if len(report.Failures) > 0 {
		return report, fmt.Errorf("%w: %d failures", ErrIncomplete, len(report.Failures))
	}
	return report, nil
}

// repairMissed brings the entry of a live candidate the paged scan skipped
// up to date, the same way the scan would have.
func (r *Reindexer) repairMissed(ctx context.Context, c *core.Candidate, fp string, report *Report, fail func(core.ID, string, error)) {
	report.Scanned++
	text := core.BuildEmbeddingText(c)
	if fp == core.Fingerprint(text) && !r.config.Force {
		report.Unchanged++
		return
	}
	err := RetryWithBackoff(ctx, r.config.MaxRetries, r.config.RetryDelay, func(ctx context.Context) error {
		return r.index.Upsert(ctx, c.ID, text, c.Tags())
	})
	if err != nil {
		fail(c.ID, "upsert", err)
		return
	}
	report.Upserted++
}

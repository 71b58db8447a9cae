package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/poiesic/candidex/ingestion"

// Invalidator is notified after every successful write or delete.
// search.Searcher implements it to drop cached responses.
type Invalidator interface {
	Invalidate()
}

// Result describes one ingested candidate.
type Result struct {
	ID        core.ID         `json:"id"`
	Candidate *core.Candidate `json:"candidate"`
	Warnings  []core.Warning  `json:"warnings,omitempty"`
}

// Indexed reports whether the candidate reached the vector index.
func (r *Result) Indexed() bool {
	return !core.HasWarning(r.Warnings, core.WarningInconsistentWrite)
}

// DeleteResult describes one deleted candidate.
type DeleteResult struct {
	ID       core.ID        `json:"id"`
	Warnings []core.Warning `json:"warnings,omitempty"`
}

// BatchItem is the outcome of one entry of a batch, in input order.
// Source is the file path for document batches.
type BatchItem struct {
	Index  int
	Source string
	Result *Result
	Err    error
}

// Ingester writes candidates to the candidate store and the vector index.
type Ingester struct {
	store       storage.CandidateRepository
	index       storage.VectorIndex
	extractor   ai.Extractor
	parser      ai.DocumentParser
	invalidator Invalidator
	pool        *ants.Pool
	tracer      trace.Tracer
	logger      *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester) error

// WithPoolSize sets the worker pool size for batch ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(in *Ingester) error {
		if size < 1 {
			size = 1
		}
		if in.pool != nil {
			in.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		in.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) error {
		if logger == nil {
			logger = slog.Default()
		}
		in.logger = logger
		return nil
	}
}

// WithExtractor sets the extractor used by IngestDocument.
func WithExtractor(extractor ai.Extractor) Option {
	return func(in *Ingester) error {
		in.extractor = extractor
		return nil
	}
}

// WithDocumentParser sets the parser used by IngestDocument.
func WithDocumentParser(parser ai.DocumentParser) Option {
	return func(in *Ingester) error {
		in.parser = parser
		return nil
	}
}

// WithInvalidator registers a cache to invalidate after writes.
func WithInvalidator(inv Invalidator) Option {
	return func(in *Ingester) error {
		in.invalidator = inv
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(in *Ingester) error {
		if tp != nil {
			in.tracer = tp.Tracer(tracerName)
		}
		return nil
	}
}

// NewIngester creates a new Ingester.
func NewIngester(store storage.CandidateRepository, index storage.VectorIndex, opts ...Option) (*Ingester, error) {
	if store == nil {
		return nil, ErrCandidateStoreRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	in := &Ingester{
		store:  store,
		index:  index,
		pool:   pool,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(in); optErr != nil {
			in.Release()
			return nil, optErr
		}
	}

	return in, nil
}

// Release releases the worker pool.
// The ingester should not be used after calling Release.
func (in *Ingester) Release() {
	if in.pool != nil {
		in.pool.Release()
	}
}

// Ingest validates c, normalizes its skills, derives its embedding text and
// writes it to the candidate store and then the vector index. The caller's
// candidate is not modified; Result.Candidate holds the stored record.
//
// A candidate store failure is returned as an error. A vector index failure
// is not: the candidate is stored and the Result carries an
// inconsistent_write warning.
func (in *Ingester) Ingest(ctx context.Context, c *core.Candidate) (*Result, error) {
	if err := core.ValidateCandidate(c); err != nil {
		return nil, err
	}

	ctx, span := in.tracer.Start(ctx, "ingestion.Ingest")
	defer span.End()

	cp := *c
	cp.Skills = core.NormalizeSkills(c.Skills)
	cp.EmbeddingText = core.BuildEmbeddingText(&cp)

	id, err := in.store.Put(ctx, &cp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.logger.Error("error storing candidate", "name", cp.Name, "err", err)
		return nil, fmt.Errorf("store candidate: %w", err)
	}
	span.SetAttributes(attribute.String("candidate.id", string(id)))

	result := &Result{ID: id, Candidate: &cp}
	if err := in.index.Upsert(ctx, id, cp.EmbeddingText, cp.Tags()); err != nil {
		span.RecordError(err)
		in.logger.Warn("candidate stored but not indexed", "id", id, "err", err)
		result.Warnings = append(result.Warnings, core.InconsistentWrite(id, "upsert", err))
	}

	in.invalidate()
	in.logger.Debug("ingested candidate", "id", id, "indexed", result.Indexed())
	return result, nil
}

// IngestBatch ingests candidates concurrently on the worker pool.
// Items are returned in input order; one failure never stops the others.
func (in *Ingester) IngestBatch(ctx context.Context, candidates []*core.Candidate) []BatchItem {
	items := make([]BatchItem, len(candidates))
	in.runBatch(ctx, len(candidates), func(i int) {
		items[i].Index = i
		items[i].Result, items[i].Err = in.Ingest(ctx, candidates[i])
	}, func(i int, err error) {
		items[i] = BatchItem{Index: i, Err: err}
	})
	return items
}

// IngestDocument parses the document at path, extracts a candidate from its
// text and ingests it. The parsed text is kept as RawText.
func (in *Ingester) IngestDocument(ctx context.Context, path string) (*Result, error) {
	if in.parser == nil {
		return nil, ErrParserRequired
	}
	if in.extractor == nil {
		return nil, ErrExtractorRequired
	}

	ctx, span := in.tracer.Start(ctx, "ingestion.IngestDocument",
		trace.WithAttributes(attribute.String("document.path", path)))
	defer span.End()

	text, err := in.parser.ParseDocument(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c, err := in.extractor.ExtractCandidate(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	c.RawText = text
	if c.DocumentType == "" {
		c.DocumentType = core.DocumentTypeResume
	}

	return in.Ingest(ctx, c)
}

// IngestDocuments runs IngestDocument for every path on the worker pool.
func (in *Ingester) IngestDocuments(ctx context.Context, paths []string) []BatchItem {
	items := make([]BatchItem, len(paths))
	in.runBatch(ctx, len(paths), func(i int) {
		items[i].Index = i
		items[i].Source = paths[i]
		items[i].Result, items[i].Err = in.IngestDocument(ctx, paths[i])
	}, func(i int, err error) {
		items[i] = BatchItem{Index: i, Source: paths[i], Err: err}
	})
	return items
}

// runBatch submits work(i) for every i in [0, n) and waits for all of it.
// Entries that cannot be submitted, or that are skipped after ctx is done,
// are reported through fail.
func (in *Ingester) runBatch(ctx context.Context, n int, work func(i int), fail func(i int, err error)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			fail(i, err)
			continue
		}
		wg.Add(1)
		err := in.pool.Submit(func() {
			defer wg.Done()
			work(i)
		})
		if err != nil {
			wg.Done()
			fail(i, fmt.Errorf("submit batch item %d: %w", i, err))
		}
	}
	wg.Wait()
}

// Delete removes a candidate from the candidate store and then the vector
// index. A missing candidate returns storage.ErrNotFound. A vector index
// failure leaves the candidate deleted and adds an inconsistent_write warning.
func (in *Ingester) Delete(ctx context.Context, id core.ID) (*DeleteResult, error) {
	ctx, span := in.tracer.Start(ctx, "ingestion.Delete",
		trace.WithAttributes(attribute.String("candidate.id", string(id))))
	defer span.End()

	deleted, err := in.store.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("delete candidate: %w", err)
	}
	if !deleted {
		// Clear any orphaned index entry left behind by an earlier failure
		if _, err := in.index.Delete(ctx, id); err != nil {
			in.logger.Debug("orphan cleanup failed", "id", id, "err", err)
		}
		return nil, fmt.Errorf("candidate %s: %w", id, storage.ErrNotFound)
	}

	result := &DeleteResult{ID: id}
	if _, err := in.index.Delete(ctx, id); err != nil {
		span.RecordError(err)
		in.logger.Warn("candidate deleted but index entry remains", "id", id, "err", err)
		result.Warnings = append(result.Warnings, core.InconsistentWrite(id, "delete", err))
	}

	in.invalidate()
	return result, nil
}

func (in *Ingester) invalidate() {
	if in.invalidator != nil {
		in.invalidator.Invalidate()
	}
}

package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/match"
	"github.com/poiesic/candidex/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds the semantic sub-query when the query sets none.
const DefaultTimeout = 5 * time.Second

const tracerName = "github.com/poiesic/candidex/search"

// Searcher provides hybrid semantic and fuzzy search over candidates.
type Searcher struct {
	store   storage.CandidateRepository
	index   storage.VectorIndex
	timeout time.Duration
	monitor SearchMonitor
	cache   *resultCache
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTimeout sets the default semantic sub-query timeout.
// Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) error {
		if d < 0 {
			return ErrInvalidTimeout
		}
		s.timeout = d
		return nil
	}
}

// WithMonitor sets the monitor used by Search.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor != nil {
			s.monitor = monitor
		}
		return nil
	}
}

// WithResultCache keeps complete responses for ttl. Responses carrying
// warnings are never cached.
func WithResultCache(ttl time.Duration) Option {
	return func(s *Searcher) error {
		if ttl <= 0 {
			return ErrInvalidTimeout
		}
		s.cache = newResultCache(ttl)
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Searcher) error {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.CandidateRepository, index storage.VectorIndex, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrCandidateStoreRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	s := &Searcher{
		store:   store,
		index:   index,
		timeout: DefaultTimeout,
		monitor: &noopMonitor{},
		tracer:  otel.Tracer(tracerName),
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Invalidate drops every cached response. Writers call it after a change to
// either store.
func (s *Searcher) Invalidate() {
	if s.cache != nil {
		s.cache.flush()
	}
}

// Search runs a hybrid search with the searcher's monitor.
func (s *Searcher) Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error) {
	return s.SearchWithMonitor(ctx, q, s.monitor)
}

// SearchWithMonitor runs a hybrid search.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q core.SearchQuery, monitor SearchMonitor) (*core.SearchResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateQuery(&q); err != nil {
		return nil, err
	}
	q = q.Clone()

	started := time.Now()
	monitor.Start(&q)

	ctx, span := s.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.Bool("search.has_text", q.HasText()),
		attribute.Int("search.limit", q.Limit),
		attribute.Int("search.offset", q.Offset),
	))
	defer span.End()

	if s.cache != nil {
		if resp, ok := s.cache.get(&q); ok {
			span.SetAttributes(attribute.Bool("search.cache_hit", true))
			monitor.CacheHit()
			monitor.Finish(resp, time.Since(started))
			return resp, nil
		}
	}

	resp, err := s.search(ctx, &q, monitor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("search.results", len(resp.Results)),
		attribute.Bool("search.partial", resp.Partial()),
	)
	if s.cache != nil {
		s.cache.put(&q, resp)
	}
	monitor.Finish(resp, time.Since(started))
	return resp, nil
}

// fusedResult accumulates the score of one candidate across both sources.
type fusedResult struct {
	candidate *core.Candidate
	score     float64
	details   map[string]float64
}

func (s *Searcher) search(ctx context.Context, q *core.SearchQuery, monitor SearchMonitor) (*core.SearchResponse, error) {
	runSemantic := q.HasText() && q.SemanticWeight > 0
	runFuzzy := q.FuzzyWeight > 0 || q.ExactWeight > 0 || q.HasStructuredClauses()

	var (
		semantic    []storage.VectorMatch
		semanticErr error
		fuzzy       []core.ScoredCandidate
	)

	g, gctx := errgroup.WithContext(ctx)

	if runSemantic {
		g.Go(func() error {
			// Semantic failures degrade the response and never fail the group
			semantic, semanticErr = s.semanticSearch(gctx, q, monitor)
			return nil
		})
	}

	if runFuzzy {
		g.Go(func() error {
			var err error
			fuzzy, err = s.fuzzySearch(gctx, q, monitor)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("fuzzy search failed", "err", err)
		return nil, fmt.Errorf("fuzzy search: %w", err)
	}

	fused := make(map[core.ID]*fusedResult, len(semantic)+len(fuzzy))

	// Candidates already loaded by the fuzzy branch need no store lookup
	loaded := make(map[core.ID]*core.Candidate, len(fuzzy))
	for _, f := range fuzzy {
		loaded[f.Candidate.ID] = f.Candidate
	}

	for _, m := range semantic {
		c, ok := loaded[m.ID]
		if !ok {
			var err error
			c, err = s.store.Get(ctx, m.ID)
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("dropping semantic match missing from candidate store", "id", m.ID)
				monitor.DroppedMiss(m.ID)
				continue
			}
			if err != nil {
				s.logger.Error("error resolving semantic match", "id", m.ID, "err", err)
				return nil, fmt.Errorf("resolve %s: %w", m.ID, err)
			}
		}
		fused[m.ID] = &fusedResult{
			candidate: c,
			score:     m.Similarity * q.SemanticWeight,
			details:   map[string]float64{core.DetailSemantic: m.Similarity},
		}
	}

	for _, f := range fuzzy {
		id := f.Candidate.ID
		r, ok := fused[id]
		if !ok {
			r = &fusedResult{candidate: f.Candidate, details: make(map[string]float64)}
			fused[id] = r
		}
		r.score += f.Score * q.FuzzyWeight
		r.details[core.DetailFuzzy] = f.Score
		maps.Copy(r.details, f.Details)
	}

	results := make([]core.SearchResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, core.SearchResult{
			Candidate:    r.candidate,
			Score:        r.score,
			MatchDetails: r.details,
		})
	}
	slices.SortFunc(results, func(a, b core.SearchResult) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Candidate.ID, b.Candidate.ID)
	})

	resp := &core.SearchResponse{Results: match.Page(results, q.Offset, q.Limit)}
	if semanticErr != nil {
		s.logger.Warn("semantic search degraded", "err", semanticErr)
		resp.Warnings = append(resp.Warnings, core.PartialResults(semanticErr))
	}
	return resp, nil
}

// semanticSearch queries the vector index under the semantic timeout.
func (s *Searcher) semanticSearch(ctx context.Context, q *core.SearchQuery, monitor SearchMonitor) ([]storage.VectorMatch, error) {
	ctx, span := s.tracer.Start(ctx, "search.semantic")
	defer span.End()

	timeout := s.timeout
	if q.Timeout > 0 {
		timeout = q.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	matches, err := s.queryIndex(ctx, q)
	monitor.AfterSemanticSearch(matches, err, time.Since(started))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.semantic_matches", len(matches)))
	return matches, nil
}

type indexResult struct {
	matches []storage.VectorMatch
	err     error
}

// queryIndex returns when the index answers or ctx ends, whichever comes
// first. An index that ignores its context is left to finish in the
// background and its late answer is discarded.
func (s *Searcher) queryIndex(ctx context.Context, q *core.SearchQuery) ([]storage.VectorMatch, error) {
	done := make(chan indexResult, 1)
	go func() {
		matches, err := s.index.Query(ctx, q.Text, q.Limit+q.Offset, q.Filter)
		done <- indexResult{matches: matches, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.matches, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fuzzySearch asks the candidate store for every match so pagination can be
// applied after fusion.
func (s *Searcher) fuzzySearch(ctx context.Context, q *core.SearchQuery, monitor SearchMonitor) ([]core.ScoredCandidate, error) {
	ctx, span := s.tracer.Start(ctx, "search.fuzzy")
	defer span.End()

	fq := q.Clone()
	fq.Offset = 0
	fq.Limit = 0

	started := time.Now()
	results, err := s.store.FuzzySearch(ctx, fq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	monitor.AfterFuzzySearch(results, time.Since(started))
	span.SetAttributes(attribute.Int("search.fuzzy_matches", len(results)))
	return results, nil
}

// Package cache provides an in-process TTL cache in front of an ai.Embedder.
//
// Query texts repeat far more often than documents change, so caching their
// vectors saves a round trip to the embedding service on every repeated
// search.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
)

// Defaults used when no TTL is supplied.
const (
	DefaultTTL             = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// CachedEmbedder caches embeddings keyed by a digest of the input text.
type CachedEmbedder struct {
	inner      ai.Embedder
	store      *gocache.Cache
	cacheTotal *prometheus.CounterVec
	logger     *slog.Logger
}

var _ ai.Embedder = (*CachedEmbedder)(nil)

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL replaces the backing cache with one using the given TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) {
		if ttl > 0 {
			c.store = gocache.New(ttl, DefaultCleanupInterval)
		}
	}
}

// WithCounter records "hit" and "miss" on a counter vec with a "result" label.
func WithCounter(counter *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) {
		c.cacheTotal = counter
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CachedEmbedder) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps inner with a TTL cache.
func New(inner ai.Embedder, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		store:  gocache.New(DefaultTTL, DefaultCleanupInterval),
		logger: slog.Default().With("component", "embedding-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbedText returns a cached embedding or calls the inner embedder.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if v, ok := c.store.Get(key); ok {
		c.inc("hit")
		return clone(v.([]float32)), nil
	}
	c.inc("miss")

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	c.store.SetDefault(key, clone(vec))
	return vec, nil
}

// EmbedTexts serves cached entries and embeds only the misses, in one batch.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if v, ok := c.store.Get(cacheKey(text)); ok {
			c.inc("hit")
			out[i] = clone(v.([]float32))
			continue
		}
		c.inc("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.store.SetDefault(cacheKey(missTexts[j]), clone(vecs[j]))
	}
	c.logger.Debug("embedded cache misses", "misses", len(missTexts), "total", len(texts))
	return out, nil
}

// Flush drops every cached entry.
func (c *CachedEmbedder) Flush() {
	c.store.Flush()
}

// Len returns the number of cached entries, including expired ones not yet
// cleaned up.
func (c *CachedEmbedder) Len() int {
	return c.store.ItemCount()
}

func (c *CachedEmbedder) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	return "emb:" + core.Fingerprint(text)
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}

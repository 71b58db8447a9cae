// Package metrics holds the Prometheus collectors for candidex.
//
// Collectors are package-level so every component records into the same
// series. Register adds them to the default registry and is safe to call
// more than once.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "candidex"

// Search metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of hybrid searches",
		},
		[]string{"outcome"}, // "complete" / "partial" / "cached"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // "semantic" / "fuzzy" / "total"
	)

	SearchSourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_source_errors_total",
			Help:      "Semantic sub-query failures that degraded a search",
		},
		[]string{"source"},
	)

	SearchDroppedMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_dropped_misses_total",
			Help:      "Semantic matches dropped because the candidate store had no record",
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)

// Write-path metrics.
var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Candidate writes by outcome",
		},
		[]string{"op", "outcome"}, // op: "ingest" / "delete"; outcome: "ok" / "inconsistent" / "error"
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers every collector with the default Prometheus registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			SearchSourceErrorsTotal,
			SearchDroppedMissesTotal,
			SearchResults,
			IngestTotal,
			EmbeddingCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

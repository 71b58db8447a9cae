package metrics

import (
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/search"
	"github.com/poiesic/candidex/storage"
)

// SearchMonitor records search stages into the package collectors.
// It holds no per-search state, so one value can serve every search.
type SearchMonitor struct{}

var _ search.SearchMonitor = SearchMonitor{}

func (SearchMonitor) Start(_ *core.SearchQuery) {}

func (SearchMonitor) AfterSemanticSearch(_ []storage.VectorMatch, err error, elapsed time.Duration) {
	SearchDuration.WithLabelValues("semantic").Observe(elapsed.Seconds())
	if err != nil {
		SearchSourceErrorsTotal.WithLabelValues("semantic").Inc()
	}
}

func (SearchMonitor) AfterFuzzySearch(_ []core.ScoredCandidate, elapsed time.Duration) {
	SearchDuration.WithLabelValues("fuzzy").Observe(elapsed.Seconds())
}

func (SearchMonitor) DroppedMiss(_ core.ID) {
	SearchDroppedMissesTotal.Inc()
}

func (SearchMonitor) CacheHit() {
	SearchRequestsTotal.WithLabelValues("cached").Inc()
}

func (SearchMonitor) Finish(resp *core.SearchResponse, elapsed time.Duration) {
	SearchDuration.WithLabelValues("total").Observe(elapsed.Seconds())
	SearchResults.Observe(float64(len(resp.Results)))
	if resp.Partial() {
		SearchRequestsTotal.WithLabelValues("partial").Inc()
		return
	}
	SearchRequestsTotal.WithLabelValues("complete").Inc()
}

// ObserveWrite records the outcome of an ingest or delete.
func ObserveWrite(op string, warnings []core.Warning, err error) {
	switch {
	case err != nil:
		IngestTotal.WithLabelValues(op, "error").Inc()
	case core.HasWarning(warnings, core.WarningInconsistentWrite):
		IngestTotal.WithLabelValues(op, "inconsistent").Inc()
	default:
		IngestTotal.WithLabelValues(op, "ok").Inc()
	}
}

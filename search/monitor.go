package search

import (
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Implementations must be safe for concurrent use: the semantic and fuzzy
// hooks fire from different goroutines.
type SearchMonitor interface {
	Start(q *core.SearchQuery)
	AfterSemanticSearch(matches []storage.VectorMatch, err error, elapsed time.Duration)
	AfterFuzzySearch(results []core.ScoredCandidate, elapsed time.Duration)
	DroppedMiss(id core.ID)
	CacheHit()
	Finish(resp *core.SearchResponse, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.SearchQuery)                                             {}
func (n *noopMonitor) AfterSemanticSearch(_ []storage.VectorMatch, _ error, _ time.Duration) {}
func (n *noopMonitor) AfterFuzzySearch(_ []core.ScoredCandidate, _ time.Duration)            {}
func (n *noopMonitor) DroppedMiss(_ core.ID)                                                 {}
func (n *noopMonitor) CacheHit()                                                             {}
func (n *noopMonitor) Finish(_ *core.SearchResponse, _ time.Duration)                        {}

package search

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/poiesic/candidex/core"
)

// resultCache keeps complete responses keyed by the canonical query.
type resultCache struct {
	store *cache.Cache
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{store: cache.New(ttl, 2*ttl)}
}

// key hashes the JSON encoding of q. Struct fields encode in declaration
// order, so equal queries always produce equal keys.
func (c *resultCache) key(q *core.SearchQuery) (string, bool) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", false
	}
	return "search:" + core.Fingerprint(string(data)), true
}

func (c *resultCache) get(q *core.SearchQuery) (*core.SearchResponse, bool) {
	key, ok := c.key(q)
	if !ok {
		return nil, false
	}
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	return cloneResponse(v.(*core.SearchResponse)), true
}

func (c *resultCache) put(q *core.SearchQuery, resp *core.SearchResponse) {
	if len(resp.Warnings) > 0 {
		return
	}
	if key, ok := c.key(q); ok {
		c.store.SetDefault(key, cloneResponse(resp))
	}
}

func (c *resultCache) flush() {
	c.store.Flush()
}

// cloneResponse deep-copies resp, including every candidate and
// match-details map, so neither the caller nor the cache sees the other's
// mutations.
func cloneResponse(resp *core.SearchResponse) *core.SearchResponse {
	out := &core.SearchResponse{
		Results:  slices.Clone(resp.Results),
		Warnings: slices.Clone(resp.Warnings),
	}
	for i, r := range out.Results {
		out.Results[i].Candidate = r.Candidate.Clone()
		out.Results[i].MatchDetails = maps.Clone(r.MatchDetails)
	}
	return out
}

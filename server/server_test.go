package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/candidex/ai/mock"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/ingestion"
	"github.com/poiesic/candidex/search"
	"github.com/poiesic/candidex/storage/badger"
	"github.com/poiesic/candidex/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	stores  *badger.Stores
	dana    core.ID
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	searcher, err := search.NewSearcher(stores.Candidates, stores.Index)
	require.NoError(t, err)
	in, err := ingestion.NewIngester(stores.Candidates, stores.Index, ingestion.WithInvalidator(searcher))
	require.NoError(t, err)
	t.Cleanup(in.Release)

	res, err := in.Ingest(context.Background(), &core.Candidate{
		Name:       "Dana Lee",
		Skills:     []string{"Python", "SQL"},
		Experience: []core.Experience{{Company: "Acme Corp", Role: "Data Engineer"}},
	})
	require.NoError(t, err)

	svc, err := tools.NewService(searcher, stores.Candidates, tools.WithWriter(in))
	require.NoError(t, err)

	return &testEnv{handler: New(svc, opts...).Handler(), stores: stores, dana: res.ID}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/search",
		`{"text": "data engineer", "companies": ["Acme Corp"], "skills": ["python"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	resp := decodeBody[core.SearchResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Dana Lee", resp.Results[0].Candidate.Name)
	assert.Contains(t, resp.Results[0].MatchDetails, core.DetailSemantic)
	assert.Contains(t, resp.Results[0].MatchDetails, core.DetailFuzzy)
}

func TestStatusMapping(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/v1/search", `{"text":`, http.StatusBadRequest, "bad_request"},
		{"dto validation", http.MethodPost, "/v1/search", `{"text": "go", "offset": -1}`, http.StatusBadRequest, "validation_failed"},
		{"empty query", http.MethodPost, "/v1/search", `{}`, http.StatusBadRequest, "validation_failed"},
		{"missing candidate", http.MethodGet, "/v1/candidates/nope", "", http.StatusNotFound, "candidate_not_found"},
		{"delete missing candidate", http.MethodDelete, "/v1/candidates/nope", "", http.StatusNotFound, "candidate_not_found"},
		{"unknown operation", http.MethodPost, "/v1/invoke/drop_tables", `{}`, http.StatusNotFound, "unknown_operation"},
		{"invalid invoke arguments", http.MethodPost, "/v1/invoke/search_by_role", `{"company": "Acme"}`, http.StatusBadRequest, "validation_failed"},
		{"nameless candidate", http.MethodPost, "/v1/candidates", `{"skills": ["Go"]}`, http.StatusBadRequest, "validation_failed"},
		{"bad list offset", http.MethodGet, "/v1/candidates?offset=abc", "", http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rr).Code)
		})
	}
}

func TestStatusMapping_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.stores.Backend.Close())

	rr := env.do(t, http.MethodGet, "/v1/candidates", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "store_unavailable", decodeBody[ErrorResponse](t, rr).Code)
}

func TestCandidateLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/candidates", `{"name": "Ann Example", "skills": ["Rust"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[ingestion.Result](t, rr)
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.Warnings)

	rr = env.do(t, http.MethodGet, "/v1/candidates/"+string(created.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ann Example", decodeBody[core.Candidate](t, rr).Name)

	rr = env.do(t, http.MethodGet, "/v1/candidates?limit=1&offset=0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[tools.CandidatePage](t, rr)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Candidates, 1)

	rr = env.do(t, http.MethodDelete, "/v1/candidates/"+string(created.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/candidates/"+string(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvokeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/invoke/find_skill_combinations", `{"skills": ["SQL", "Python"], "match_all": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[core.SearchResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, env.dana, resp.Results[0].Candidate.ID)

	// Operations without arguments accept an empty body
	rr = env.do(t, http.MethodPost, "/v1/invoke/list_candidates", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, decodeBody[tools.CandidatePage](t, rr).Total)

	rr = env.do(t, http.MethodGet, "/v1/operations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	ops := decodeBody[map[string][]string](t, rr)
	assert.Contains(t, ops["operations"], tools.OpSearchByEducation)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", decodeBody[map[string]string](t, rr)["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		env := newTestEnv(t, WithHealthCheck(func(context.Context) error {
			return errors.New("store down")
		}))
		rr := env.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(t, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	stores := badger.NewMemoryStores(t, mock.NewMockEmbedder())
	searcher, err := search.NewSearcher(stores.Candidates, stores.Index)
	require.NoError(t, err)
	svc, err := tools.NewService(searcher, stores.Candidates)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(svc).Serve(ctx, ln, ListenConfig{ShutdownTimeout: time.Second})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

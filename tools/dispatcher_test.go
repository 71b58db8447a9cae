package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/ingestion"
	"github.com/poiesic/candidex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Operations(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.svc)

	assert.Equal(t, []string{
		OpDeleteCandidate,
		OpFindSkillCombinations,
		OpGetCandidate,
		OpIngestCandidate,
		OpListCandidates,
		OpSearch,
		OpSearchByEducation,
		OpSearchByRole,
	}, d.Operations())
}

func TestDispatcher_Routing(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.svc)
	ctx := context.Background()

	tests := []struct {
		name  string
		op    string
		args  string
		check func(t *testing.T, out any)
	}{
		{
			name: "search",
			op:   OpSearch,
			args: `{"text": "data engineer python", "skills": ["python"], "limit": 2}`,
			check: func(t *testing.T, out any) {
				resp := out.(*core.SearchResponse)
				require.NotEmpty(t, resp.Results)
				assert.LessOrEqual(t, len(resp.Results), 2)
				assert.Equal(t, "Dana Lee", resp.Results[0].Candidate.Name)
			},
		},
		{
			name: "get candidate",
			op:   OpGetCandidate,
			args: `{"id": "` + string(f.ids["Raj Patel"]) + `"}`,
			check: func(t *testing.T, out any) {
				assert.Equal(t, "Raj Patel", out.(*core.Candidate).Name)
			},
		},
		{
			name: "list candidates with empty arguments",
			op:   OpListCandidates,
			args: ``,
			check: func(t *testing.T, out any) {
				page := out.(*CandidatePage)
				assert.Equal(t, 3, page.Total)
				assert.Len(t, page.Candidates, 3)
			},
		},
		{
			name: "find skill combinations",
			op:   OpFindSkillCombinations,
			args: `{"skills": ["Go", "Kubernetes"], "match_all": true}`,
			check: func(t *testing.T, out any) {
				assert.Equal(t, []string{"Raj Patel"}, names(out.(*core.SearchResponse)))
			},
		},
		{
			name: "search by role",
			op:   OpSearchByRole,
			args: `{"keywords": "Product Manager", "limit": 1}`,
			check: func(t *testing.T, out any) {
				assert.Equal(t, []string{"Mia Chen"}, names(out.(*core.SearchResponse)))
			},
		},
		{
			name: "search by education",
			op:   OpSearchByEducation,
			args: `{"institution": "Stanford University"}`,
			check: func(t *testing.T, out any) {
				assert.Equal(t, []string{"Raj Patel"}, names(out.(*core.SearchResponse)))
			},
		},
		{
			name: "ingest candidate",
			op:   OpIngestCandidate,
			args: `{"name": "Ann Example", "skills": ["Rust"]}`,
			check: func(t *testing.T, out any) {
				res := out.(*ingestion.Result)
				assert.NotEmpty(t, res.ID)
				assert.True(t, res.Indexed())
			},
		},
		{
			name: "delete candidate",
			op:   OpDeleteCandidate,
			args: `{"id": "` + string(f.ids["Mia Chen"]) + `"}`,
			check: func(t *testing.T, out any) {
				assert.Equal(t, f.ids["Mia Chen"], out.(*ingestion.DeleteResult).ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := d.Invoke(ctx, tt.op, json.RawMessage(tt.args))
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestDispatcher_Errors(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.svc)
	ctx := context.Background()

	tests := []struct {
		name string
		op   string
		args string
		want error
	}{
		{"unknown operation", "drop_database", `{}`, ErrUnknownOperation},
		{"malformed json", OpSearch, `{"text":`, core.ErrValidation},
		{"unknown field", OpSearchByRole, `{"keywords": "x", "title": "y"}`, core.ErrValidation},
		{"missing skills", OpFindSkillCombinations, `{"match_all": true}`, core.ErrValidation},
		{"blank skill", OpFindSkillCombinations, `{"skills": [""]}`, core.ErrValidation},
		{"missing keywords", OpSearchByRole, `{"company": "Acme"}`, core.ErrValidation},
		{"education needs one field", OpSearchByEducation, `{"limit": 5}`, core.ErrValidation},
		{"negative offset", OpListCandidates, `{"offset": -1}`, core.ErrValidation},
		{"negative weight", OpSearch, `{"text": "go", "fuzzy_weight": -1}`, core.ErrValidation},
		{"empty search", OpSearch, `{}`, core.ErrValidation},
		{"missing id", OpGetCandidate, `{}`, core.ErrValidation},
		{"missing candidate", OpGetCandidate, `{"id": "nope"}`, storage.ErrNotFound},
		{"nameless candidate", OpIngestCandidate, `{"skills": ["Go"]}`, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Invoke(ctx, tt.op, json.RawMessage(tt.args))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSearchArgs_Query(t *testing.T) {
	zero := 0.0
	a := SearchArgs{Text: "go", ExactWeight: &zero, TimeoutMillis: 250}
	q := a.Query()

	assert.Equal(t, core.DefaultLimit, q.Limit)
	assert.Equal(t, core.DefaultSemanticWeight, q.SemanticWeight)
	assert.Equal(t, core.DefaultFuzzyWeight, q.FuzzyWeight)
	assert.Zero(t, q.ExactWeight)
	assert.Equal(t, int64(250), q.Timeout.Milliseconds())
}

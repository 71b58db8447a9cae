package core

import (
	"slices"
	"time"
)

// Defaults applied by NewSearchQuery.
const (
	DefaultLimit          = 10
	DefaultSemanticWeight = 0.6
	DefaultFuzzyWeight    = 0.3
	DefaultExactWeight    = 0.1
)

// TagFilter restricts vector index results by denormalized metadata.
// Every listed tag must be present on the entry.
type TagFilter struct {
	Skills       []string `json:"skills,omitempty"`
	Companies    []string `json:"companies,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	Institutions []string `json:"institutions,omitempty"`
}

// Empty reports whether the filter has no tags at all.
func (f *TagFilter) Empty() bool {
	return f == nil || len(f.Skills)+len(f.Companies)+len(f.Roles)+len(f.Institutions) == 0
}

// SearchQuery is the canonical hybrid search request.
type SearchQuery struct {
	Text         string   `json:"text,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Companies    []string `json:"companies,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	Institutions []string `json:"institutions,omitempty"`
	Degrees      []string `json:"degrees,omitempty"`

	// MatchAllSkills turns the skills pre-filter from "any" into "all".
	// The skill sub-score is still the fraction of query skills found.
	MatchAllSkills bool `json:"match_all_skills,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	SemanticWeight float64 `json:"semantic_weight"`
	FuzzyWeight    float64 `json:"fuzzy_weight"`
	ExactWeight    float64 `json:"exact_weight"`

	// Timeout bounds the semantic sub-query. Zero uses the searcher default.
	Timeout time.Duration `json:"timeout,omitempty"`

	Filter *TagFilter `json:"filter,omitempty"`
}

// NewSearchQuery returns a query populated with the default limit and weights.
func NewSearchQuery() SearchQuery {
	return SearchQuery{
		Limit:          DefaultLimit,
		SemanticWeight: DefaultSemanticWeight,
		FuzzyWeight:    DefaultFuzzyWeight,
		ExactWeight:    DefaultExactWeight,
	}
}

// HasText reports whether the query carries a free-text clause.
func (q *SearchQuery) HasText() bool {
	return trimmed(q.Text) != ""
}

// HasStructuredClauses reports whether any structured clause is non-empty.
func (q *SearchQuery) HasStructuredClauses() bool {
	return len(q.Skills) > 0 || len(q.Companies) > 0 || len(q.Roles) > 0 ||
		len(q.Institutions) > 0 || len(q.Degrees) > 0
}

// Clone returns a deep copy of the query.
func (q SearchQuery) Clone() SearchQuery {
	q.Skills = slices.Clone(q.Skills)
	q.Companies = slices.Clone(q.Companies)
	q.Roles = slices.Clone(q.Roles)
	q.Institutions = slices.Clone(q.Institutions)
	q.Degrees = slices.Clone(q.Degrees)
	if q.Filter != nil {
		f := *q.Filter
		f.Skills = slices.Clone(f.Skills)
		f.Companies = slices.Clone(f.Companies)
		f.Roles = slices.Clone(f.Roles)
		f.Institutions = slices.Clone(f.Institutions)
		q.Filter = &f
	}
	return q
}

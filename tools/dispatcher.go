package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/candidex/core"
)

// Operation names accepted by Dispatcher.Invoke.
const (
	OpSearch                = "search"
	OpGetCandidate          = "get_candidate"
	OpListCandidates        = "list_candidates"
	OpFindSkillCombinations = "find_skill_combinations"
	OpSearchByRole          = "search_by_role"
	OpSearchByEducation     = "search_by_education"
	OpIngestCandidate       = "ingest_candidate"
	OpDeleteCandidate       = "delete_candidate"
)

// SearchArgs is the payload of OpSearch. Unset weights and limit take the
// core defaults.
type SearchArgs struct {
	Text           string          `json:"text"`
	Skills         []string        `json:"skills"`
	Companies      []string        `json:"companies"`
	Roles          []string        `json:"roles"`
	Institutions   []string        `json:"institutions"`
	Degrees        []string        `json:"degrees"`
	MatchAllSkills bool            `json:"match_all_skills"`
	Limit          int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset         int             `json:"offset" validate:"gte=0"`
	SemanticWeight *float64        `json:"semantic_weight" validate:"omitempty,gte=0"`
	FuzzyWeight    *float64        `json:"fuzzy_weight" validate:"omitempty,gte=0"`
	ExactWeight    *float64        `json:"exact_weight" validate:"omitempty,gte=0"`
	TimeoutMillis  int             `json:"timeout_ms" validate:"gte=0"`
	Filter         *core.TagFilter `json:"filter"`
}

// Query converts the payload into a SearchQuery.
func (a *SearchArgs) Query() core.SearchQuery {
	q := core.NewSearchQuery()
	q.Text = a.Text
	q.Skills = a.Skills
	q.Companies = a.Companies
	q.Roles = a.Roles
	q.Institutions = a.Institutions
	q.Degrees = a.Degrees
	q.MatchAllSkills = a.MatchAllSkills
	q.Offset = a.Offset
	q.Filter = a.Filter
	if a.Limit > 0 {
		q.Limit = a.Limit
	}
	if a.SemanticWeight != nil {
		q.SemanticWeight = *a.SemanticWeight
	}
	if a.FuzzyWeight != nil {
		q.FuzzyWeight = *a.FuzzyWeight
	}
	if a.ExactWeight != nil {
		q.ExactWeight = *a.ExactWeight
	}
	q.Timeout = time.Duration(a.TimeoutMillis) * time.Millisecond
	return q
}

type idArgs struct {
	ID string `json:"id" validate:"required"`
}

type listArgs struct {
	Offset int `json:"offset" validate:"gte=0"`
	Limit  int `json:"limit" validate:"gte=0,lte=1000"`
}

type skillArgs struct {
	Skills   []string `json:"skills" validate:"required,min=1,dive,required"`
	MatchAll bool     `json:"match_all"`
	Limit    int      `json:"limit" validate:"gte=0,lte=1000"`
}

type roleArgs struct {
	Keywords string `json:"keywords" validate:"required"`
	Company  string `json:"company"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
}

type educationArgs struct {
	Institution string `json:"institution" validate:"required_without=Degree"`
	Degree      string `json:"degree" validate:"required_without=Institution"`
	Limit       int    `json:"limit" validate:"gte=0,lte=1000"`
}

// Handler runs one operation against raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes operation names to Service methods.
type Dispatcher struct {
	handlers map[string]Handler
	validate *validator.Validate
}

// NewDispatcher registers every Service operation.
func NewDispatcher(svc *Service) *Dispatcher {
	d := &Dispatcher{validate: validator.New(validator.WithRequiredStructEnabled())}
	d.handlers = map[string]Handler{
		OpSearch: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a SearchArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.Search(ctx, a.Query())
		},
		OpGetCandidate: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a idArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.GetCandidate(ctx, core.ID(a.ID))
		},
		OpListCandidates: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a listArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.ListCandidates(ctx, a.Offset, a.Limit)
		},
		OpFindSkillCombinations: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a skillArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.FindSkillCombinations(ctx, a.Skills, a.MatchAll, a.Limit)
		},
		OpSearchByRole: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a roleArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.SearchByRole(ctx, a.Keywords, a.Company, a.Limit)
		},
		OpSearchByEducation: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a educationArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.SearchByEducation(ctx, a.Institution, a.Degree, a.Limit)
		},
		OpIngestCandidate: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var c core.Candidate
			if err := d.decode(raw, &c); err != nil {
				return nil, err
			}
			return svc.IngestCandidate(ctx, &c)
		},
		OpDeleteCandidate: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a idArgs
			if err := d.decode(raw, &a); err != nil {
				return nil, err
			}
			return svc.DeleteCandidate(ctx, core.ID(a.ID))
		},
	}
	return d
}

// Operations returns the registered operation names in sorted order.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke runs the named operation. Malformed or invalid arguments wrap
// core.ErrValidation; an unregistered name returns ErrUnknownOperation.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := d.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return h(ctx, args)
}

// decode unmarshals raw into v and validates struct tags. Empty arguments
// decode as an empty object.
func (d *Dispatcher) decode(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid arguments: %w", core.ErrValidation, err)
	}
	if err := d.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	return nil
}

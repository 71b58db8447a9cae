package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/ingestion"
	"github.com/poiesic/candidex/storage"
)

// Searcher answers hybrid queries.
type Searcher interface {
	Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error)
}

// Writer applies candidate writes to both stores.
type Writer interface {
	Ingest(ctx context.Context, c *core.Candidate) (*ingestion.Result, error)
	Delete(ctx context.Context, id core.ID) (*ingestion.DeleteResult, error)
}

// CandidatePage is one page of ListCandidates.
type CandidatePage struct {
	Candidates []*core.Candidate `json:"candidates"`
	Total      int               `json:"total"`
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
}

// Service implements the named operations.
type Service struct {
	searcher Searcher
	store    storage.CandidateRepository
	writer   Writer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithWriter enables IngestCandidate and DeleteCandidate.
func WithWriter(w Writer) Option {
	return func(s *Service) error {
		s.writer = w
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a Service. Without WithWriter it is read-only.
func NewService(searcher Searcher, store storage.CandidateRepository, opts ...Option) (*Service, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if store == nil {
		return nil, ErrCandidateStoreRequired
	}
	s := &Service{
		searcher: searcher,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search runs q unchanged.
func (s *Service) Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error) {
	return s.searcher.Search(ctx, q)
}

// GetCandidate returns one candidate or an error wrapping storage.ErrNotFound.
func (s *Service) GetCandidate(ctx context.Context, id core.ID) (*core.Candidate, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, fmt.Errorf("%w: candidate id is required", core.ErrValidation)
	}
	return s.store.Get(ctx, id)
}

// ListCandidates returns candidates in ID order. A limit <= 0 uses
// core.DefaultLimit.
func (s *Service) ListCandidates(ctx context.Context, offset, limit int) (*CandidatePage, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: %w: got %d", core.ErrValidation, core.ErrInvalidOffset, offset)
	}
	if limit <= 0 {
		limit = core.DefaultLimit
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []*core.Candidate{}
	}
	return &CandidatePage{Candidates: candidates, Total: total, Offset: offset, Limit: limit}, nil
}

// FindSkillCombinations finds candidates holding any (or, with matchAll,
// every) listed skill, ranked by the fraction of skills held.
func (s *Service) FindSkillCombinations(ctx context.Context, skills []string, matchAll bool, limit int) (*core.SearchResponse, error) {
	q := s.query(limit)
	q.Skills = skills
	q.MatchAllSkills = matchAll
	return s.searcher.Search(ctx, q)
}

// SearchByRole matches keywords against roles, semantically and fuzzily,
// optionally boosted by a company.
func (s *Service) SearchByRole(ctx context.Context, keywords, company string, limit int) (*core.SearchResponse, error) {
	if strings.TrimSpace(keywords) == "" {
		return nil, fmt.Errorf("%w: role keywords are required", core.ErrValidation)
	}
	q := s.query(limit)
	q.Text = keywords
	q.Roles = []string{keywords}
	if strings.TrimSpace(company) != "" {
		q.Companies = []string{company}
	}
	return s.searcher.Search(ctx, q)
}

// SearchByEducation matches institutions and degrees fuzzily. At least one
// of the two is required.
func (s *Service) SearchByEducation(ctx context.Context, institution, degree string, limit int) (*core.SearchResponse, error) {
	q := s.query(limit)
	if strings.TrimSpace(institution) != "" {
		q.Institutions = []string{institution}
	}
	if strings.TrimSpace(degree) != "" {
		q.Degrees = []string{degree}
	}
	if len(q.Institutions) == 0 && len(q.Degrees) == 0 {
		return nil, fmt.Errorf("%w: institution or degree is required", core.ErrValidation)
	}
	return s.searcher.Search(ctx, q)
}

// IngestCandidate writes c to both stores.
func (s *Service) IngestCandidate(ctx context.Context, c *core.Candidate) (*ingestion.Result, error) {
	if s.writer == nil {
		return nil, ErrReadOnly
	}
	return s.writer.Ingest(ctx, c)
}

// DeleteCandidate removes id from both stores.
func (s *Service) DeleteCandidate(ctx context.Context, id core.ID) (*ingestion.DeleteResult, error) {
	if s.writer == nil {
		return nil, ErrReadOnly
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil, fmt.Errorf("%w: candidate id is required", core.ErrValidation)
	}
	return s.writer.Delete(ctx, id)
}

func (s *Service) query(limit int) core.SearchQuery {
	q := core.NewSearchQuery()
	if limit > 0 {
		q.Limit = limit
	}
	return q
}

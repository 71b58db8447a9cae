package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
)

// MockExtractor is a test double for ai.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractCandidateFunc is called by ExtractCandidate if set.
	// If nil, uses a simple line-based extraction.
	ExtractCandidateFunc func(ctx context.Context, text string) (*core.Candidate, error)

	callCount atomic.Int64
}

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// ExtractCandidate builds a candidate from text.
// Default behavior: the first non-blank line is the name and a line starting
// with "Skills:" supplies comma-separated skills.
func (m *MockExtractor) ExtractCandidate(ctx context.Context, text string) (*core.Candidate, error) {
	m.callCount.Add(1)

	if m.ExtractCandidateFunc != nil {
		return m.ExtractCandidateFunc(ctx, text)
	}

	c := &core.Candidate{
		DocumentType: core.DocumentTypeResume,
		Skills:       []string{},
		Education:    []core.Education{},
		Experience:   []core.Experience{},
		RawText:      text,
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if c.Name == "" {
			c.Name = line
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Skills:"); ok {
			for _, s := range strings.Split(rest, ",") {
				if s = strings.TrimSpace(s); s != "" {
					c.Skills = append(c.Skills, s)
				}
			}
		}
	}
	if c.Name == "" {
		return nil, ai.ErrExtractionFailed
	}
	return c, nil
}

// CallCount returns the number of times ExtractCandidate was called.
func (m *MockExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractCandidateFunc = nil
}

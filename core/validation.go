// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateCandidate validates a Candidate according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//   - DocumentType, when set, must be a known type
//   - GPA, when set, must not be negative
//
// NOT validated (populated by ingestion):
//   - ID (assigned by the candidate store when empty)
//   - EmbeddingText (derived from the other fields)
func ValidateCandidate(c *Candidate) error {
	if c == nil {
		return fmt.Errorf("%w: %w", ErrValidation, ErrNilCandidate)
	}

	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyName)
	}

	switch c.DocumentType {
	case "", DocumentTypeResume, DocumentTypeJobDescription:
	default:
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidDocumentType, c.DocumentType)
	}

	for i, e := range c.Education {
		if e.GPA != nil && *e.GPA < 0 {
			return fmt.Errorf("%w: education[%d]: %w", ErrValidation, i, ErrInvalidGPA)
		}
	}

	return nil
}

// ValidateQuery validates a SearchQuery.
//
// Validation rules:
//   - Limit must be greater than zero
//   - Offset must not be negative
//   - SemanticWeight, FuzzyWeight and ExactWeight must be non-negative
//   - At least one of text, skills, companies, roles, institutions or
//     degrees must be present; an empty query never means "match everything"
func ValidateQuery(q *SearchQuery) error {
	if q == nil {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}

	if q.Limit <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrValidation, ErrInvalidLimit, q.Limit)
	}

	if q.Offset < 0 {
		return fmt.Errorf("%w: %w: got %d", ErrValidation, ErrInvalidOffset, q.Offset)
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"semantic_weight", q.SemanticWeight},
		{"fuzzy_weight", q.FuzzyWeight},
		{"exact_weight", q.ExactWeight},
	}
	for _, w := range weights {
		if w.value < 0 || math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return fmt.Errorf("%w: %w: %s=%v", ErrValidation, ErrInvalidWeight, w.name, w.value)
		}
	}

	if !q.HasText() && !hasNonBlank(q.Skills, q.Companies, q.Roles, q.Institutions, q.Degrees) {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}

	return nil
}

func hasNonBlank(lists ...[]string) bool {
	for _, l := range lists {
		for _, s := range l {
			if trimmed(s) != "" {
				return true
			}
		}
	}
	return false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

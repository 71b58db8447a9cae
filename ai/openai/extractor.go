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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Extractor implements ai.Extractor using OpenAI-compatible chat APIs.
type Extractor struct {
	client   llms.Model
	attempts int
	logger   *slog.Logger
}

var _ ai.Extractor = (*Extractor)(nil)

// extraction is the structure expected from the LLM. GPA is left loose
// because models return it as a number, a string or null.
type extraction struct {
	Name    string `json:"name"`
	Contact *struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
		LinkedIn string `json:"linkedin"`
		Website  string `json:"website"`
	} `json:"contact"`
	Education []struct {
		Institution    string `json:"institution"`
		Degree         string `json:"degree"`
		GraduationDate string `json:"graduation_date"`
		GPA            any    `json:"gpa"`
	} `json:"education"`
	Experience []struct {
		Company          string   `json:"company"`
		Role             string   `json:"role"`
		Start            string   `json:"start"`
		End              string   `json:"end"`
		Responsibilities []string `json:"responsibilities"`
	} `json:"experience"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
	Summary        string   `json:"summary"`
}

// newExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newExtractor(config *ai.Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return newExtractorWithModel(client, config.ExtractionAttempts), nil
}

func newExtractorWithModel(client llms.Model, attempts int) *Extractor {
	if attempts < 1 {
		attempts = 1
	}
	return &Extractor{
		client:   client,
		attempts: attempts,
		logger:   slog.Default().With("component", "openai-extractor"),
	}
}

// NewExtractor creates a new candidate extractor using the provided configuration.
//
// Returns ai.Extractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.Extractor, error) {
	return newExtractor(config)
}

// ExtractCandidate asks the model for a JSON record and converts it into a
// candidate. Malformed JSON is retried up to the configured attempts.
func (e *Extractor) ExtractCandidate(ctx context.Context, text string) (*core.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", ai.ErrExtractionFailed, ai.ErrEmptyDocument)
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var result extraction
	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", ai.ErrExtractionFailed, err)
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := repairJSON(response.Choices[0].Content)

		result = extraction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		if strings.TrimSpace(result.Name) == "" {
			lastErr = core.ErrEmptyName
			e.logger.Warn("extractor response has no name", "attempt", attempt+1)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ai.ErrExtractionFailed, lastErr)
	}

	c := toCandidate(&result)
	c.RawText = text
	e.logger.Debug("extracted candidate",
		"name", c.Name,
		"skills", len(c.Skills),
		"experience", len(c.Experience))
	return c, nil
}

func toCandidate(r *extraction) *core.Candidate {
	c := &core.Candidate{
		Name:           strings.TrimSpace(r.Name),
		DocumentType:   core.DocumentTypeResume,
		Education:      make([]core.Education, 0, len(r.Education)),
		Experience:     make([]core.Experience, 0, len(r.Experience)),
		Skills:         core.NormalizeSkills(r.Skills),
		Certifications: nonNil(r.Certifications),
		Summary:        strings.TrimSpace(r.Summary),
	}
	if r.Contact != nil {
		c.Contact = &core.Contact{
			Email:    r.Contact.Email,
			Phone:    r.Contact.Phone,
			Address:  r.Contact.Address,
			LinkedIn: r.Contact.LinkedIn,
			Website:  r.Contact.Website,
		}
	}
	for _, ed := range r.Education {
		c.Education = append(c.Education, core.Education{
			Institution:    ed.Institution,
			Degree:         ed.Degree,
			GraduationDate: ed.GraduationDate,
			GPA:            parseGPA(ed.GPA),
		})
	}
	for _, ex := range r.Experience {
		c.Experience = append(c.Experience, core.Experience{
			Company:          ex.Company,
			Role:             ex.Role,
			Start:            ex.Start,
			End:              ex.End,
			Responsibilities: nonNil(ex.Responsibilities),
		})
	}
	return c
}

func parseGPA(v any) *float64 {
	switch g := v.(type) {
	case float64:
		return &g
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(g), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

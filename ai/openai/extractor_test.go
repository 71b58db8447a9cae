package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/candidex/ai"
)

// scriptedModel replays canned responses in order.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := min(m.calls, len(m.responses)-1)
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[i]}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

const danaJSON = "```json\n" + `{
  "name": "Dana Lee",
  "contact": {"email": "dana@example.com"},
  "education": [{"institution": "MIT", "degree": "BSc", "gpa": "3.7"}],
  "experience": [{"company": "Acme Corp", "role": "Data Engineer", "responsibilities": ["Built pipelines"]}],
  "skills": ["Python", "SQL", "python"]
}` + "\n```"

func TestExtractCandidate(t *testing.T) {
	model := &scriptedModel{responses: []string{danaJSON}}
	e := newExtractorWithModel(model, 3)

	c, err := e.ExtractCandidate(context.Background(), "Dana Lee resume text")
	require.NoError(t, err)

	assert.Equal(t, "Dana Lee", c.Name)
	assert.Equal(t, "dana@example.com", c.Contact.Email)
	assert.Equal(t, []string{"Python", "SQL"}, c.Skills)
	require.Len(t, c.Education, 1)
	require.NotNil(t, c.Education[0].GPA)
	assert.InDelta(t, 3.7, *c.Education[0].GPA, 1e-9)
	require.Len(t, c.Experience, 1)
	assert.Equal(t, "Acme Corp", c.Experience[0].Company)
	assert.NotNil(t, c.Certifications)
	assert.Equal(t, "Dana Lee resume text", c.RawText)
	assert.Empty(t, c.ID)
	assert.Equal(t, 1, model.calls)
}

func TestExtractCandidate_RetriesMalformedJSON(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"not json at all",
		`{"name": "", "skills": []}`,
		`{name": "Sam", "skills": ["Go"], "education": [], "experience": []}`,
	}}
	e := newExtractorWithModel(model, 3)

	c, err := e.ExtractCandidate(context.Background(), "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Sam", c.Name)
	assert.Equal(t, 3, model.calls)
}

func TestExtractCandidate_GivesUp(t *testing.T) {
	model := &scriptedModel{responses: []string{"nope"}}
	e := newExtractorWithModel(model, 2)

	_, err := e.ExtractCandidate(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrExtractionFailed)
	assert.Equal(t, 2, model.calls)
}

func TestExtractCandidate_ModelError(t *testing.T) {
	boom := errors.New("connection refused")
	e := newExtractorWithModel(&scriptedModel{err: boom}, 3)

	_, err := e.ExtractCandidate(context.Background(), "text")
	assert.ErrorIs(t, err, ai.ErrExtractionFailed)
	assert.ErrorIs(t, err, boom)
}

func TestExtractCandidate_EmptyText(t *testing.T) {
	e := newExtractorWithModel(&scriptedModel{responses: []string{danaJSON}}, 3)

	_, err := e.ExtractCandidate(context.Background(), "  \n ")
	assert.ErrorIs(t, err, ai.ErrEmptyDocument)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid json unchanged", `{"name": "Sam"}`, `{"name": "Sam"}`},
		{"missing opening quote", `{name": "Sam"}`, `{"name": "Sam"}`},
		{"missing quote after comma", `{"a": 1, skills": []}`, `{"a": 1, "skills": []}`},
		{"code fence", "```json\n{\"name\": \"Sam\"}\n```", `{"name": "Sam"}`},
		{"surrounding prose", `Here is the candidate: {"name": "Sam"} Hope this helps!`, `{"name": "Sam"}`},
		{"trailing commas", `{"skills": ["Go", "SQL",], "name": "Sam",}`, `{"skills": ["Go", "SQL"], "name": "Sam"}`},
		{"comma inside a value is kept", `{"summary": "Go, SQL", "name": "Sam"}`, `{"summary": "Go, SQL", "name": "Sam"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

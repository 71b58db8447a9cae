package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/candidex/ai"
)

// fixedClient returns vectors of the configured sizes in call order.
type fixedClient struct {
	sizes []int
	err   error
	calls int
}

func (c *fixedClient) next() []float32 {
	n := c.sizes[min(c.calls, len(c.sizes)-1)]
	c.calls++
	return make([]float32, n)
}

func (c *fixedClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.next(), nil
}

func (c *fixedClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = c.next()
	}
	return out, nil
}

func testEmbedder(client *fixedClient) *Embedder {
	return &Embedder{client: client, model: "test-model", logger: slog.Default()}
}

func TestEmbedder_Dimensions(t *testing.T) {
	e := testEmbedder(&fixedClient{sizes: []int{4, 4, 8}})
	ctx := context.Background()
	assert.Zero(t, e.Dimensions())

	_, err := e.EmbedText(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 4, e.Dimensions())

	_, err = e.EmbedText(ctx, "second")
	require.NoError(t, err)

	_, err = e.EmbedText(ctx, "third")
	assert.ErrorIs(t, err, ai.ErrDimensionMismatch)
	assert.Equal(t, 4, e.Dimensions())
}

func TestEmbedder_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		client *fixedClient
		call   func(*Embedder) error
	}{
		{
			name:   "service error",
			client: &fixedClient{err: errors.New("connection refused")},
			call: func(e *Embedder) error {
				_, err := e.EmbedText(ctx, "x")
				return err
			},
		},
		{
			name:   "empty vector",
			client: &fixedClient{sizes: []int{0}},
			call: func(e *Embedder) error {
				_, err := e.EmbedText(ctx, "x")
				return err
			},
		},
		{
			name:   "batch service error",
			client: &fixedClient{err: errors.New("timeout")},
			call: func(e *Embedder) error {
				_, err := e.EmbedTexts(ctx, []string{"a", "b"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(testEmbedder(tt.client)), ai.ErrEmbeddingFailed)
		})
	}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	e := testEmbedder(&fixedClient{sizes: []int{3}})

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)

	vectors, err = e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.Error(t, err)
}

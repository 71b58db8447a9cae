package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "senior data engineer")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "senior data engineer")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimension)
	assert.InDelta(t, 1.0, dot(a, a), 1e-5)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedder_SharedWordsAreCloser(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	q, _ := m.EmbedText(ctx, "data engineer")
	near, _ := m.EmbedText(ctx, "senior data engineer python")
	far, _ := m.EmbedText(ctx, "pastry chef")

	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestMockEmbedder_FixedVectorsAndFuncs(t *testing.T) {
	m := NewMockEmbedder().WithVector("x", []float32{1, 0})
	ctx := context.Background()

	v, err := m.EmbedText(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	vs, err := m.EmbedTexts(ctx, []string{"x", "x"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	boom := errors.New("boom")
	m.EmbedTextFunc = func(context.Context, string) ([]float32, error) { return nil, boom }
	_, err = m.EmbedText(ctx, "x")
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	v, err = m.EmbedText(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
}

func TestMockExtractor_Default(t *testing.T) {
	m := NewMockExtractor()

	c, err := m.ExtractCandidate(context.Background(), "\nDana Lee\nSkills: Python, SQL\n")
	require.NoError(t, err)
	assert.Equal(t, "Dana Lee", c.Name)
	assert.Equal(t, []string{"Python", "SQL"}, c.Skills)
	assert.NotNil(t, c.Education)
	assert.NotNil(t, c.Experience)

	_, err = m.ExtractCandidate(context.Background(), "   ")
	assert.Error(t, err)
	assert.Equal(t, 2, m.CallCount())
}

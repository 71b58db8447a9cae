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
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/candidex/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder on an OpenAI-compatible /embeddings API.
//
// The first vector it returns fixes the dimension. Later vectors of another
// size fail with ai.ErrDimensionMismatch so a model swap behind the same host
// cannot silently mix incomparable vectors in one index.
type Embedder struct {
	client embeddings.Embedder
	model  string
	dims   atomic.Int64
	logger *slog.Logger
}

func newEmbedder(config *ai.Config, logger *slog.Logger) (*Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Resume text is multi-line; newlines carry no meaning for the model
	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		model:  config.EmbeddingModel,
		logger: logger.With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder validates config and returns a standalone embedder.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config, slog.Default())
}

// Dimensions returns the vector size seen so far, or 0 before the first call.
func (e *Embedder) Dimensions() int {
	return int(e.dims.Load())
}

// EmbedText embeds a query or a single embedding document.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("embedding request failed", "chars", len(text), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingFailed, err)
	}
	if err := e.check(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts embeds a batch of documents, preserving input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding request failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmbeddingFailed, len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := e.check(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (e *Embedder) check(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: service returned an empty vector", ai.ErrEmbeddingFailed)
	}
	n := int64(len(vector))
	if e.dims.CompareAndSwap(0, n) {
		e.logger.Debug("embedding dimension detected", "dims", n)
		return nil
	}
	if want := e.dims.Load(); want != n {
		return fmt.Errorf("%w: model %s returned %d, expected %d", ai.ErrDimensionMismatch, e.model, n, want)
	}
	return nil
}

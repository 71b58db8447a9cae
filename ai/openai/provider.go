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
	"log/slog"
	"sync"

	"github.com/poiesic/candidex/ai"
)

// Provider implements ai.AIProvider on OpenAI-compatible hosts such as
// Ollama, vLLM or the OpenAI API. The embedder and extractor may point at
// different hosts and models.
type Provider struct {
	embedder  *Embedder
	extractor *Extractor
	logger    *slog.Logger
	closeOnce sync.Once
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger shared by the embedder and extractor.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider validates config once and builds both services from it.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.embedder, err = newEmbedder(config, p.logger); err != nil {
		return nil, err
	}
	if p.extractor, err = newExtractor(config); err != nil {
		return nil, err
	}
	p.extractor.logger = p.logger.With("component", "openai-extractor", "model", config.ExtractorModel)

	p.logger.Info("AI provider ready",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"extractor_host", config.ExtractorHost,
		"extractor_model", config.ExtractorModel)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Extractor() ai.Extractor {
	return p.extractor
}

// Close is safe to call more than once. The langchaingo clients hold no
// resources beyond the shared HTTP transport.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("closing AI provider")
	})
	return nil
}

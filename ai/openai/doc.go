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


// Package openai embeds candidate documents and extracts candidate records
// through any OpenAI-compatible server, using langchaingo as the client.
//
// The extractor asks the chat model for one JSON object in JSON mode,
// repairs the usual formatting slips, and retries up to
// Config.ExtractionAttempts times before returning ai.ErrExtractionFailed.
// The embedder pins the vector dimension on first use.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	    ai.WithExtractorModel("qwen2.5:7b"),
//	)
//
//	provider, err := openai.NewProvider(config, openai.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "data engineer")
//	candidate, err := provider.Extractor().ExtractCandidate(ctx, resumeText)
package openai

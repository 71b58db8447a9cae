// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Extractor,
// ai.DocumentParser and ai.AIProvider for use in unit tests. The mocks run
// without external services and behave deterministically.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.WithVector("data engineer", []float32{1, 0, 0})
//
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("embedding service down")
//	}
//
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit-length bag-of-words vectors from FNV token hashes
//   - MockExtractor: first line is the name, "Skills:" line supplies skills
//   - MockDocumentParser: reads the file as plain text
//   - MockProvider: aggregates mock embedder and extractor
package mock

package mock

import (
	"context"
	"os"
	"sync/atomic"
)

// MockDocumentParser is a test double for ai.DocumentParser.
type MockDocumentParser struct {
	// ParseDocumentFunc is called by ParseDocument if set.
	// If nil, the file is read as plain text.
	ParseDocumentFunc func(ctx context.Context, path string) (string, error)

	callCount atomic.Int64
}

// NewMockDocumentParser creates a mock parser that reads files as plain text.
func NewMockDocumentParser() *MockDocumentParser {
	return &MockDocumentParser{}
}

// ParseDocument returns the content of path.
func (m *MockDocumentParser) ParseDocument(ctx context.Context, path string) (string, error) {
	m.callCount.Add(1)

	if m.ParseDocumentFunc != nil {
		return m.ParseDocumentFunc(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CallCount returns the number of times ParseDocument was called.
func (m *MockDocumentParser) CallCount() int {
	return int(m.callCount.Load())
}

// Package document turns resume and job-description files into text using
// langchaingo document loaders.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"github.com/poiesic/candidex/ai"
)

// Parser implements ai.DocumentParser for PDF, plain text and markdown files.
type Parser struct {
	logger *slog.Logger
}

var _ ai.DocumentParser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a document parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default().With("component", "document-parser")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Supported reports whether path has an extension the parser can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// ParseDocument loads the file at path and joins its pages with blank lines.
func (p *Parser) ParseDocument(ctx context.Context, path string) (string, error) {
	if !Supported(path) {
		return "", fmt.Errorf("%w: %s", ai.ErrUnsupportedDocument, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var docs []schema.Document
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		docs, err = documentloaders.NewPDF(f, info.Size()).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("load pdf %s: %w", path, err)
		}
	} else {
		docs, err = documentloaders.NewText(f).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("load text %s: %w", path, err)
		}
	}

	pages := make([]string, 0, len(docs))
	for _, d := range docs {
		if text := strings.TrimSpace(d.PageContent); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: %s", ai.ErrEmptyDocument, path)
	}

	p.logger.Debug("parsed document", "path", path, "pages", len(pages))
	return strings.Join(pages, "\n\n"), nil
}

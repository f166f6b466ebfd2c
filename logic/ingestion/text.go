package ingestion

import (
	"bytes"
	"context"
	"fmt"

	"tdr-review/logic/ingestion/parser"
	"tdr-review/logic/ingestion/processors"

	einoparser "github.com/cloudwego/eino/components/document/parser"
)

// FileReader is the slice of durable storage the extractor needs.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// TextExtractor turns a stored dossier file into plain text.
type TextExtractor struct {
	files  FileReader
	parser einoparser.Parser
}

func NewTextExtractor(ctx context.Context, files FileReader) (*TextExtractor, error) {
	p, err := parser.New(ctx)
	if err != nil {
		return nil, err
	}
	return NewTextExtractorWithParser(files, p), nil
}

// NewTextExtractorWithParser lets callers supply their own parser.
func NewTextExtractorWithParser(files FileReader, p einoparser.Parser) *TextExtractor {
	return &TextExtractor{files: files, parser: p}
}

func (e *TextExtractor) ExtractPlainText(ctx context.Context, path string) (string, error) {
	data, err := e.files.ReadFile(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	docs, err := e.parser.Parse(ctx, bytes.NewReader(data), einoparser.WithURI(path))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return processors.Join(docs), nil
}

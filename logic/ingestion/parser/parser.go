package parser

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
)

// New builds a parser that picks the implementation by file extension.
// PDFs go through the eino pdf parser; everything else is read as plain text.
func New(ctx context.Context) (einoparser.Parser, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create pdf parser: %w", err)
	}

	return einoparser.NewExtParser(ctx, &einoparser.ExtParserConfig{
		Parsers: map[string]einoparser.Parser{
			".pdf": pdfParser,
		},
		FallbackParser: einoparser.TextParser{},
	})
}

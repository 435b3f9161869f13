package ingest

import (
	"context"
	"fmt"

	"reggenie/internal/llm"

	"go.uber.org/zap"
)

const pdfPrompt = `Extract the full text of every page of the attached PDF in reading order.
Return a JSON array of strings, one string per page. Do not summarize.`

var pagesSchema = llm.StringList()

// ModelExtractor reads PDFs through the generative model's document
// understanding instead of a local parser.
type ModelExtractor struct {
	gen    llm.Generator
	logger *zap.Logger
}

func NewModelExtractor(gen llm.Generator, logger *zap.Logger) *ModelExtractor {
	return &ModelExtractor{gen: gen, logger: logger}
}

func (m *ModelExtractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, ErrNoText
	}
	var pages []string
	req := llm.Request{
		Prompt: pdfPrompt,
		Schema: pagesSchema,
		Blobs:  []llm.Blob{{MIMEType: MIMEPDF, Data: data}},
	}
	if err := llm.GenerateJSON(ctx, m.gen, req, &pages); err != nil {
		return nil, fmt.Errorf("pdf page extraction: %w", err)
	}
	m.logger.Debug("PDF pages extracted", zap.Int("pages", len(pages)))
	return pages, nil
}

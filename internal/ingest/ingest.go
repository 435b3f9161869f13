// Package ingest turns uploaded files into page text: plain text, DOCX and
// PDF documents, plus base64 encoded audio for transcription.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// pageBreak separates pages in plain text uploads.
const pageBreak = "\f"

const maxDocxXML = 64 << 20

var (
	ErrUnsupported     = errors.New("unsupported file type")
	ErrNoText          = errors.New("file contains no text")
	ErrNoExtractor     = errors.New("no PDF extractor configured")
	ErrMalformedUpload = errors.New("malformed upload")
)

// PageExtractor extracts the text of every page of a PDF.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

type Ingester struct {
	pdf    PageExtractor
	logger *zap.Logger
}

// New builds an ingester. pdf may be nil, in which case PDFs are rejected.
func New(pdf PageExtractor, logger *zap.Logger) *Ingester {
	return &Ingester{pdf: pdf, logger: logger}
}

// Pages extracts the pages of an uploaded file. The type is taken from the
// content type, then from the file extension.
func (i *Ingester) Pages(ctx context.Context, name, contentType string, data []byte) ([]string, error) {
	var (
		pages []string
		err   error
	)
	switch kind(name, contentType) {
	case MIMEPDF:
		if i.pdf == nil {
			return nil, ErrNoExtractor
		}
		pages, err = i.pdf.ExtractPages(ctx, data)
		if err != nil {
			err = fmt.Errorf("failed to extract pdf: %w", err)
		}
	case MIMEDOCX:
		var text string
		text, err = DocxText(data)
		pages = []string{text}
	case "text/plain":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupported)
		}
		pages = SplitText(string(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		i.logger.Error("Failed to ingest document", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		return nil, ErrNoText
	}
	i.logger.Info("Document ingested", zap.String("name", name), zap.Int("pages", len(pages)))
	return pages, nil
}

func kind(name, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case MIMEPDF, MIMEDOCX:
		return ct
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	case ".txt", ".md", ".csv", "":
		return "text/plain"
	}
	if strings.HasPrefix(ct, "text/") {
		return "text/plain"
	}
	return ct
}

// SplitText splits plain text on form feeds. Text without one is a single
// page.
func SplitText(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	pages := strings.Split(s, pageBreak)
	out := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{s}
	}
	return out
}

// DocxText extracts the raw text of a DOCX document, one line per paragraph.
// Formatting is discarded.
func DocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", ErrMalformedUpload, err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: docx archive has no word/document.xml", ErrMalformedUpload)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	return paragraphs(io.LimitReader(rc, maxDocxXML))
}

// paragraphs walks WordprocessingML: w:t runs are text, w:tab a tab, w:br
// and w:cr line breaks, and each w:p ends a line.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// DecodeBase64 decodes a raw base64 payload or a data URL
// ("data:audio/webm;base64,...."). The MIME type of a data URL is returned,
// fallback otherwise.
func DecodeBase64(payload, fallback string) (string, []byte, error) {
	mime := fallback
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		meta, body, ok := strings.Cut(payload, ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: data url", ErrMalformedUpload)
		}
		meta = strings.TrimPrefix(meta, "data:")
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = m
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrMalformedUpload, err)
	}
	if len(data) == 0 {
		return "", nil, ErrNoText
	}
	return mime, data, nil
}

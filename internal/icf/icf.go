// Package icf generates informed consent forms from protocol, template and
// regulatory inputs.
package icf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/export"
	"reggenie/internal/llm"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

// Types are the supported consent form kinds.
var Types = []string{"Master ICF", "Pregnancy Partner ICF", "Genomic ICF", "Assent Form"}

// Languages are the languages a form can be generated in.
var Languages = []string{"English", "French", "German", "Spanish", "Chinese", "Traditional Chinese", "Korean", "Thai", "Tamil"}

const (
	defaultType     = "Master ICF"
	defaultCountry  = "Global"
	defaultLanguage = "English"
)

var (
	ErrProtocolRequired = errors.New("please provide the protocol content")
	ErrUnknownType      = errors.New("unknown ICF type")
	ErrDocumentNotFound = errors.New("ICF document not found")
	ErrTargetRequired   = errors.New("target language is required")
)

// Input is pasted text or an attached file (PDF sent as-is to the model).
type Input struct {
	Text     string `json:"text"`
	Data     []byte `json:"fileData,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (in Input) empty() bool {
	return strings.TrimSpace(in.Text) == "" && len(in.Data) == 0
}

type Request struct {
	Protocol   Input  `json:"protocol"`
	Template   Input  `json:"template"`
	Regulatory Input  `json:"regulatory"`
	Country    string `json:"country"`
	Type       string `json:"icfType"`
	Language   string `json:"language"`
}

// Document is a generated consent form.
type Document struct {
	ID        string `json:"id"`
	Type      string `json:"icfType"`
	Country   string `json:"country"`
	Language  string `json:"language"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

func (d Document) GetID() string { return d.ID }

type Service struct {
	gen    llm.Generator
	docs   *store.Collection[Document]
	rec    audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewService(gen llm.Generator, local store.Local, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		gen: gen,
		docs: store.NewCollection(store.Options[Document]{
			Name:      "icf_documents",
			LocalKey:  store.ICFDocumentsKey,
			LocalOnly: true,
			Less:      func(a, b Document) bool { return a.CreatedAt > b.CreatedAt },
		}, local, nil, logger),
		rec:    rec,
		logger: logger,
		now:    time.Now,
	}
}

// Generate drafts a consent form.
func (s *Service) Generate(ctx context.Context, req Request, user string) (Document, error) {
	if req.Protocol.empty() {
		return Document{}, ErrProtocolRequired
	}
	req.Type = or(req.Type, defaultType)
	if !contains(Types, req.Type) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}
	req.Country = or(req.Country, defaultCountry)
	req.Language = or(req.Language, defaultLanguage)

	prompt, blobs := generatePrompt(req)
	out, err := s.gen.Generate(ctx, llm.Request{Prompt: prompt, Blobs: blobs})
	if err != nil {
		s.logger.Error("ICF generation failed", zap.String("type", req.Type), zap.Error(err))
		return Document{}, fmt.Errorf("failed to generate ICF: %w", err)
	}
	content := llm.CleanHTML(out)
	if content == "" {
		return Document{}, llm.ErrEmptyResponse
	}

	now := s.now()
	doc := Document{
		ID:        fmt.Sprintf("ICF-%d", now.UnixMilli()),
		Type:      req.Type,
		Country:   req.Country,
		Language:  req.Language,
		Content:   content,
		CreatedAt: now.UnixMilli(),
	}
	s.docs.Save(ctx, doc)
	s.rec.Record(ctx, audit.ActionICFGenerated, user, models.ModuleICF,
		fmt.Sprintf("Generated %s for %s in %s", doc.Type, doc.Country, doc.Language))
	return doc, nil
}

// Translate rewrites a generated form into target. The language label only
// changes when target is one of Languages.
func (s *Service) Translate(ctx context.Context, id, target string) (Document, error) {
	doc, ok := s.docs.Find(ctx, id)
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Document{}, ErrTargetRequired
	}

	out, err := s.gen.Generate(ctx, llm.Request{Prompt: translatePrompt(doc.Content, target)})
	if err != nil {
		s.logger.Error("ICF translation failed", zap.String("id", id), zap.Error(err))
		return Document{}, fmt.Errorf("translation failed: %w", err)
	}
	doc.Content = llm.CleanHTML(out)
	if contains(Languages, target) {
		doc.Language = target
	}
	s.docs.Save(ctx, doc)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	doc, ok := s.docs.Find(ctx, id)
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

// Download renders a generated form as a Word-compatible document.
func (s *Service) Download(ctx context.Context, id string) (export.File, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return export.File{}, err
	}
	return export.RenderConsent(export.Consent{
		Type:     doc.Type,
		Country:  doc.Country,
		Language: doc.Language,
		Content:  doc.Content,
		Date:     time.UnixMilli(doc.CreatedAt),
	})
}

func (s *Service) List(ctx context.Context) []Document {
	docs, _ := s.docs.Get(ctx)
	return docs
}

func generatePrompt(req Request) (string, []llm.Blob) {
	var (
		b     strings.Builder
		blobs []llm.Blob
	)
	fmt.Fprintf(&b, `You are an expert clinical research regulatory writer.
Draft a %s for jurisdiction %s, written in %s, compliant with ICH E6(R3) GCP and local requirements.
Use plain language suitable for participants. Return the document as HTML (h1/h2 headings, paragraphs, lists).
`, req.Type, req.Country, req.Language)

	add := func(label string, in Input) {
		if in.empty() {
			return
		}
		fmt.Fprintf(&b, "\n--- %s ---\n", label)
		if strings.TrimSpace(in.Text) != "" {
			b.WriteString(in.Text)
			b.WriteString("\n")
		}
		if len(in.Data) > 0 {
			fmt.Fprintf(&b, "(attached file %d: %s)\n", len(blobs)+1, or(in.Name, label))
			blobs = append(blobs, llm.Blob{MIMEType: or(in.MIMEType, "application/pdf"), Data: in.Data})
		}
	}
	add("PROTOCOL", req.Protocol)
	add("TEMPLATE", req.Template)
	add("REGULATORY REQUIREMENTS", req.Regulatory)
	return b.String(), blobs
}

func translatePrompt(content, target string) string {
	return fmt.Sprintf(`Translate this informed consent form into %s. Keep the HTML structure unchanged and use participant-friendly language.
Return ONLY the translated HTML.

%s`, target, content)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Package monitoring generates clinical monitoring visit reports and the
// follow-up and confirmation letters that go with them.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/ingest"
	"reggenie/internal/llm"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

type VisitType string

const (
	VisitSSV VisitType = "SSV"
	VisitSMV VisitType = "SMV"
	VisitSCV VisitType = "SCV"
)

var visitNames = map[VisitType]string{
	VisitSSV: "Site Selection Visit",
	VisitSMV: "Site Monitoring Visit",
	VisitSCV: "Site Close-out Visit",
}

func (v VisitType) Valid() bool {
	_, ok := visitNames[v]
	return ok
}

const (
	defaultProject  = "AIDE-CLIN-2025"
	defaultTemplate = "Standard GxP Template v4.2"
	defaultSponsor  = "Sponsor X"
	firstVisit      = "01"
)

// Templates offered without an upload.
var Templates = []string{defaultTemplate, "Early Phase Oncology Master", "Device-Specific Protocol Template"}

var (
	ErrIncompleteInput   = errors.New("incomplete input signals: notes or a transcript are required")
	ErrInvalidVisitType  = errors.New("visit type must be SSV, SMV or SCV")
	ErrNextVisitRequired = errors.New("next visit date is required")
	ErrReportNotFound    = errors.New("monitoring report not found")
	ErrEmptyAudio        = errors.New("audio payload is empty")
)

type Service struct {
	gen     llm.Generator
	reports *store.Collection[models.MonitoringReportLog]
	rec     audit.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(gen llm.Generator, local store.Local, remote store.Remote, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		gen: gen,
		reports: store.NewCollection(store.Options[models.MonitoringReportLog]{
			Name:     store.MonitoringReportsCollection,
			LocalKey: store.MonitoringReportsKey,
			Less: func(a, b models.MonitoringReportLog) bool {
				return a.Audit.Timestamp > b.Audit.Timestamp
			},
		}, local, remote, logger),
		rec:    rec,
		logger: logger,
		now:    time.Now,
	}
}

// Request holds the inputs of a report synthesis.
type Request struct {
	ProjectNumber     string    `json:"projectNumber"`
	VisitDate         string    `json:"visitDate"`
	VisitType         VisitType `json:"visitType"`
	Notes             string    `json:"notes"`
	Minutes           string    `json:"minutes"`
	Transcript        string    `json:"transcript"`
	LinkedContext     string    `json:"linkedUrl"`
	TemplateReference string    `json:"templateReference"`
	TemplateText      string    `json:"templateText"`
}

var reportSchema = llm.Object(map[string]*llm.Schema{
	"contentHtml": llm.String(),
	"audit": llm.Object(map[string]*llm.Schema{
		"explainability": llm.String(),
		"traceability":   llm.String(),
		"modelAccuracy":  {Type: llm.TypeNumber},
	}),
})

type synthesis struct {
	ContentHTML string             `json:"contentHtml"`
	Audit       models.ReportAudit `json:"audit"`
}

// Synthesize generates and stores a visit report.
func (s *Service) Synthesize(ctx context.Context, req Request, user string) (models.MonitoringReportLog, error) {
	if strings.TrimSpace(req.Notes) == "" && strings.TrimSpace(req.Transcript) == "" {
		return models.MonitoringReportLog{}, ErrIncompleteInput
	}
	if req.VisitType == "" {
		req.VisitType = VisitSMV
	}
	if !req.VisitType.Valid() {
		return models.MonitoringReportLog{}, ErrInvalidVisitType
	}
	req.ProjectNumber = or(req.ProjectNumber, defaultProject)
	req.TemplateReference = or(req.TemplateReference, defaultTemplate)

	var out synthesis
	if err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: reportPrompt(req), Schema: reportSchema}, &out); err != nil {
		s.logger.Error("Report synthesis failed", zap.String("project", req.ProjectNumber), zap.Error(err))
		return models.MonitoringReportLog{}, fmt.Errorf("report synthesis failed: %w", err)
	}

	now := s.now()
	out.Audit.Timestamp = now.UnixMilli()
	report := models.MonitoringReportLog{
		ID:            fmt.Sprintf("MR-%d", now.UnixMilli()),
		ProjectNumber: req.ProjectNumber,
		Sponsor:       defaultSponsor,
		VisitDate:     req.VisitDate,
		VisitNumber:   firstVisit,
		VisitType:     string(req.VisitType),
		ContentHTML:   llm.CleanHTML(out.ContentHTML),
		RawNotes:      req.Notes,
		Audit:         out.Audit,
	}
	s.reports.Save(ctx, report)
	s.rec.Record(ctx, audit.ActionReportGenerated, user, models.ModuleMonitoring,
		fmt.Sprintf("Synthesized report for %s", report.ProjectNumber))

	s.logger.Info("Monitoring report generated",
		zap.String("id", report.ID),
		zap.String("visit_type", report.VisitType))
	return report, nil
}

// FollowUp drafts the follow-up letter for a stored report.
func (s *Service) FollowUp(ctx context.Context, id, user string) (models.MonitoringReportLog, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return report, err
	}
	html, err := s.letter(ctx, followUpPrompt(report))
	if err != nil {
		return report, err
	}
	report.FollowUpHTML = html
	s.reports.Update(ctx, report)
	s.rec.Record(ctx, audit.ActionLetterGenerated, user, models.ModuleMonitoring,
		fmt.Sprintf("Follow-up letter drafted for %s (%s)", report.ProjectNumber, report.ID))
	return report, nil
}

// Confirmation drafts the next visit confirmation letter.
func (s *Service) Confirmation(ctx context.Context, id, nextVisit, user string) (models.MonitoringReportLog, error) {
	if strings.TrimSpace(nextVisit) == "" {
		return models.MonitoringReportLog{}, ErrNextVisitRequired
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return report, err
	}
	html, err := s.letter(ctx, confirmationPrompt(report, nextVisit))
	if err != nil {
		return report, err
	}
	report.ConfirmationHTML = html
	s.reports.Update(ctx, report)
	s.rec.Record(ctx, audit.ActionLetterGenerated, user, models.ModuleMonitoring,
		fmt.Sprintf("Confirmation letter drafted for %s, next visit %s", report.ProjectNumber, nextVisit))
	return report, nil
}

func (s *Service) letter(ctx context.Context, prompt string) (string, error) {
	out, err := s.gen.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		s.logger.Error("Letter generation failed", zap.Error(err))
		return "", fmt.Errorf("letter generation failed: %w", err)
	}
	html := llm.CleanHTML(out)
	if html == "" {
		return "", llm.ErrEmptyResponse
	}
	return html, nil
}

// Transcribe converts recorded audio into text.
func (s *Service) Transcribe(ctx context.Context, mime string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyAudio
	}
	out, err := s.gen.Generate(ctx, llm.Request{
		Prompt: transcribePrompt,
		Blobs:  []llm.Blob{{MIMEType: mime, Data: data}},
	})
	if err != nil {
		s.logger.Error("Transcription failed", zap.String("mime", mime), zap.Error(err))
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// AppendTranscript adds a labelled transcript block to existing text.
func AppendTranscript(existing, fileName, text string) string {
	block := fmt.Sprintf("[Transcript %s]:\n%s", fileName, text)
	if existing == "" {
		return block
	}
	return existing + "\n\n" + block
}

// Template is a report structure taken from an uploaded DOCX.
type Template struct {
	Reference string `json:"templateReference"`
	Text      string `json:"templateText"`
}

// LoadTemplate reads the raw text of a DOCX template.
func LoadTemplate(name string, data []byte) (Template, error) {
	text, err := ingest.DocxText(data)
	if err != nil {
		return Template{}, fmt.Errorf("failed to parse template file: %w", err)
	}
	return Template{Reference: "Uploaded: " + name, Text: text}, nil
}

// History lists stored reports, newest first.
func (s *Service) History(ctx context.Context) []models.MonitoringReportLog {
	reports, _ := s.reports.Get(ctx)
	return reports
}

func (s *Service) Get(ctx context.Context, id string) (models.MonitoringReportLog, error) {
	r, ok := s.reports.Find(ctx, id)
	if !ok {
		return models.MonitoringReportLog{}, ErrReportNotFound
	}
	return r, nil
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Package translation implements the human-in-the-loop translation
// workflow: ingestion metrics, AI translation per page, word level
// corrections tagged with MQM severity and type, the QC timer and sign-off.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/llm"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("translation job not found")

const (
	defaultProject  = "AZ-PH1-2025"
	defaultTarget   = "Spanish"
	unknownLanguage = "Unknown"
	maxAlternatives = 5
	providerName    = "Gemini"
	translationMode = "Agentic"
)

type Service struct {
	gen    llm.Generator
	logs   *store.Collection[models.TranslationLog]
	rec    audit.Recorder
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
	// serialises tracking id allocation
	idMu sync.Mutex
}

// NewService builds the service. Translation logs are kept in the local
// store only.
func NewService(gen llm.Generator, local store.Local, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		gen: gen,
		logs: store.NewCollection(store.Options[models.TranslationLog]{
			Name:      "translation_logs",
			LocalKey:  store.TranslationLogsKey,
			LocalOnly: true,
			Less:      func(a, b models.TranslationLog) bool { return a.Timestamp > b.Timestamp },
		}, local, nil, logger),
		rec:    rec,
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*Job),
	}
}

// CreateRequest opens a job over already extracted pages.
type CreateRequest struct {
	ProjectNumber   string                      `json:"projectNumber"`
	TargetLanguage  string                      `json:"targetLanguage"`
	DocType         models.TranslationDocType   `json:"docType"`
	Dimension       models.TranslationDimension `json:"dimension"`
	CulturalNuances bool                        `json:"culturalNuances"`
	FunctionalGroup models.FunctionalGroup      `json:"functionalGroup"`
	Pages           []string                    `json:"pages"`
}

// Create registers a Draft job, computes its metrics and detects the source
// language from the first page.
func (s *Service) Create(ctx context.Context, req CreateRequest) (View, error) {
	pages := make([]string, 0, len(req.Pages))
	for _, p := range req.Pages {
		pages = append(pages, strings.ReplaceAll(p, "\r\n", "\n"))
	}
	if len(pages) == 0 || strings.TrimSpace(strings.Join(pages, "")) == "" {
		return View{}, ErrEmptyDocument
	}

	target := or(req.TargetLanguage, defaultTarget)
	if !SupportedLanguage(target) {
		return View{}, fmt.Errorf("%w: target %q", ErrUnsupportedLanguage, target)
	}

	now := s.now()
	m := ComputeMetrics(pages)
	log := models.TranslationLog{
		FunctionalGroup: models.FunctionalGroup(or(string(req.FunctionalGroup), string(models.GroupClinicalOperations))),
		DocType:         models.TranslationDocType(or(string(req.DocType), string(models.DocEssentialDocuments))),
		Dimension:       models.TranslationDimension(or(string(req.Dimension), string(models.DimensionMedicalAccuracy))),
		CulturalNuances: req.CulturalNuances,
		ProjectNumber:   or(req.ProjectNumber, defaultProject),
		Timestamp:       now.UnixMilli(),
		SourceLanguage:  s.DetectLanguage(ctx, pages[0]),
		TargetLanguage:  target,
		WordCount:       m.Words,
		CharCount:       m.Chars,
		TokenCount:      m.Tokens,
		PageCount:       len(pages),
		PageRange:       fmt.Sprintf("1-%d", len(pages)),
		Mode:            translationMode,
		Provider:        providerName,
		EstimatedCost:   m.EstimatedCost,
		QualityScore:    100,
		Status:          models.QCDraft,
	}

	s.idMu.Lock()
	ms := now.UnixMilli()
	for s.exists(fmt.Sprintf("trans-%d", ms)) {
		ms++
	}
	log.ID = fmt.Sprintf("trans-%d", ms)
	log.TrackingID = s.nextTrackingID(ctx, now)
	job := newJob(log, pages)
	job.event(EventIngested, now)
	s.logs.Save(ctx, job.snapshotLog())
	s.mu.Lock()
	s.jobs[log.ID] = job
	s.mu.Unlock()
	s.idMu.Unlock()

	s.logger.Info("Translation job created",
		zap.String("id", log.ID),
		zap.String("tracking_id", log.TrackingID),
		zap.Int("pages", len(pages)),
		zap.Int("words", m.Words))
	return job.View(now), nil
}

// DetectLanguage names the primary language of text from its first 1000
// characters, "Unknown" when detection fails.
func (s *Service) DetectLanguage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return unknownLanguage
	}
	out, err := s.gen.Generate(ctx, llm.Request{Prompt: detectPrompt(sample(text, detectSampleSize))})
	if err != nil {
		s.logger.Error("Language detection failed", zap.Error(err))
		return unknownLanguage
	}
	lang := strings.Trim(strings.TrimSpace(out), `."'`)
	if lang == "" {
		return unknownLanguage
	}
	return lang
}

// Translate translates every page and moves the job to QC Pending. With back
// set, each translated page is translated back into the source language.
func (s *Service) Translate(ctx context.Context, id string, back bool) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	log := job.snapshotLog()
	if !timed(log.Status) {
		return View{}, fmt.Errorf("%w: cannot translate a %s document", ErrInvalidTransition, log.Status)
	}

	source := job.View(s.now()).Source
	system := structuralPrompt(log.Dimension, log.CulturalNuances, log.TargetLanguage)
	pages := make([]string, 0, len(source))
	for i, p := range source {
		if strings.TrimSpace(p) == "" {
			pages = append(pages, p)
			continue
		}
		out, err := s.gen.Generate(ctx, llm.Request{System: system, Prompt: translatePrompt(p, log.TargetLanguage, i+1, len(source))})
		if err != nil {
			s.logger.Error("Translation failed", zap.String("id", id), zap.Int("page", i+1), zap.Error(err))
			return View{}, fmt.Errorf("translation of page %d failed: %w", i+1, err)
		}
		pages = append(pages, strings.TrimSpace(out))
	}

	var backPages []string
	if back {
		sourceLang := log.SourceLanguage
		if sourceLang == unknownLanguage {
			sourceLang = "English"
		}
		for i, p := range pages {
			out, err := s.gen.Generate(ctx, llm.Request{Prompt: backTranslatePrompt(p, sourceLang)})
			if err != nil {
				s.logger.Warn("Back translation failed", zap.String("id", id), zap.Int("page", i+1), zap.Error(err))
				backPages = nil
				break
			}
			backPages = append(backPages, strings.TrimSpace(out))
		}
	}

	if err := job.SetTranslation(pages, backPages, s.now()); err != nil {
		return View{}, err
	}
	s.persist(ctx, job)
	s.logger.Info("Document translated", zap.String("id", id), zap.String("target", log.TargetLanguage))
	return job.View(s.now()), nil
}

var alternativesSchema = llm.StringList()

// Alternatives suggests replacements for one word of a translated page.
// Failures yield an empty list.
func (s *Service) Alternatives(ctx context.Context, id string, pageIndex, wordIndex int) ([]string, error) {
	job, err := s.job(id)
	if err != nil {
		return nil, err
	}
	pages := job.Pages()
	if pageIndex < 0 || pageIndex >= len(pages) {
		return nil, fmt.Errorf("%w: page %d out of range", ErrInvalidCorrection, pageIndex)
	}
	words := Words(pages[pageIndex])
	if wordIndex < 0 || wordIndex >= len(words) {
		return nil, fmt.Errorf("%w: word %d out of range", ErrInvalidCorrection, wordIndex)
	}
	word := words[wordIndex]

	var alts []string
	req := llm.Request{
		Prompt: alternativesPrompt(word, pages[pageIndex], job.snapshotLog().TargetLanguage),
		Schema: alternativesSchema,
	}
	if err := llm.GenerateJSON(ctx, s.gen, req, &alts); err != nil {
		s.logger.Error("Failed to fetch alternatives", zap.String("word", word), zap.Error(err))
		return []string{}, nil
	}

	out := make([]string, 0, maxAlternatives)
	seen := map[string]bool{word: true}
	for _, a := range alts {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out, nil
}

// Correct commits a reviewer correction.
func (s *Service) Correct(ctx context.Context, id string, c Correction) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	r, err := job.ApplyCorrection(c, s.now())
	if err != nil {
		return View{}, err
	}
	s.persist(ctx, job)
	s.logger.Info("Translation corrected",
		zap.String("id", id),
		zap.String("from", r.OriginalText),
		zap.String("to", r.UpdatedText),
		zap.String("severity", string(r.MQMSeverity)))
	return job.View(s.now()), nil
}

func (s *Service) StartReview(ctx context.Context, id string) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	if err := job.StartReview(s.now()); err != nil {
		return View{}, err
	}
	s.persist(ctx, job)
	return job.View(s.now()), nil
}

func (s *Service) StopReview(ctx context.Context, id string) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	job.StopReview(s.now())
	s.persist(ctx, job)
	return job.View(s.now()), nil
}

// Finalize signs the QC off in the reviewer's name.
func (s *Service) Finalize(ctx context.Context, id, reviewer, user string) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	if err := job.Finalize(reviewer, s.now()); err != nil {
		return View{}, err
	}
	s.persist(ctx, job)

	log := job.snapshotLog()
	s.rec.Record(ctx, audit.ActionTranslationFinalized, user, models.ModuleTranslation,
		fmt.Sprintf("Translation %s (%s) finalized by %s. Quality score %.1f, %d corrections.",
			log.TrackingID, log.TargetLanguage, log.QCReviewerName, log.QualityScore, log.HumanCorrectionVolume))
	return job.View(s.now()), nil
}

// MarkExported records an export of the job. The status only changes for a
// finalized document.
func (s *Service) MarkExported(ctx context.Context, id, format, user string) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	if job.MarkDownloaded(s.now()) {
		s.persist(ctx, job)
	}
	log := job.snapshotLog()
	s.rec.Record(ctx, audit.ActionTranslationExported, user, models.ModuleTranslation,
		fmt.Sprintf("Translation %s exported as %s (status %s).", log.TrackingID, format, log.Status))
	return job.View(s.now()), nil
}

// ExportDate is the date printed on exports: the sign-off time once the
// review is certified, the service clock before that.
func (s *Service) ExportDate(log models.TranslationLog) time.Time {
	if log.CertifiedAt > 0 {
		return time.UnixMilli(log.CertifiedAt).UTC()
	}
	return s.now()
}

func (s *Service) Get(id string) (View, error) {
	job, err := s.job(id)
	if err != nil {
		return View{}, err
	}
	return job.View(s.now()), nil
}

// Logs lists the stored translation logs, newest first.
func (s *Service) Logs(ctx context.Context) []models.TranslationLog {
	logs, _ := s.logs.Get(ctx)
	return logs
}

// nextTrackingID counts this year's logs: YYYY-NNN.
func (s *Service) nextTrackingID(ctx context.Context, now time.Time) string {
	year := fmt.Sprintf("%d", now.Year())
	n := 0
	for _, l := range s.Logs(ctx) {
		if strings.HasPrefix(l.TrackingID, year) {
			n++
		}
	}
	return fmt.Sprintf("%s-%03d", year, n+1)
}

func (s *Service) persist(ctx context.Context, job *Job) {
	s.logs.Save(ctx, job.snapshotLog())
}

func (s *Service) exists(id string) bool {
	_, err := s.job(id)
	return err == nil
}

func (s *Service) job(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

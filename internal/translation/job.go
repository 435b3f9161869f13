package translation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"reggenie/internal/models"
)

var (
	ErrReviewerRequired    = errors.New("authorized reviewer name is required for finalization")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotTranslated       = errors.New("document has not been translated")
	ErrInvalidCorrection   = errors.New("invalid correction")
	ErrEmptyDocument       = errors.New("document has no text")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// MQM severity weights.
var severityWeights = map[models.MQMSeverity]float64{
	models.SeverityMinor:    1,
	models.SeverityMajor:    5,
	models.SeverityCritical: 10,
}

// Workflow events recorded in the time codes.
const (
	EventIngested      = "ingested"
	EventTranslated    = "translated"
	EventReviewStarted = "review_started"
	EventReviewStopped = "review_stopped"
	EventCorrection    = "correction"
	EventFinalized     = "qc_finalized"
	EventDownloaded    = "downloaded"
)

// Job is one document moving through Draft -> QC Pending -> QC Finalized ->
// Downloaded. All methods are safe for concurrent use.
type Job struct {
	mu sync.Mutex

	log    models.TranslationLog
	source []string
	pages  []string

	reviewing   bool
	reviewSince time.Time
}

func newJob(log models.TranslationLog, source []string) *Job {
	if log.Status == "" {
		log.Status = models.QCDraft
	}
	if log.Rationales == nil {
		log.Rationales = []models.CorrectionRationale{}
	}
	if log.WorkflowTimeCodes == nil {
		log.WorkflowTimeCodes = []models.WorkflowTimeCode{}
	}
	return &Job{log: log, source: source}
}

// Correction is a reviewer intervention on one translated word.
type Correction struct {
	PageIndex   int                `json:"pageIndex"`
	WordIndex   int                `json:"wordIndex"`
	Replacement string             `json:"replacement"`
	Severity    models.MQMSeverity `json:"mqmSeverity"`
	Type        models.MQMType     `json:"mqmType"`
	Rationale   string             `json:"rationale"`
}

// View is a consistent snapshot of a job.
type View struct {
	Log       models.TranslationLog `json:"log"`
	Source    []string              `json:"sourcePages"`
	Pages     []string              `json:"translatedPages"`
	Reviewing bool                  `json:"reviewing"`
}

func (j *Job) View(now time.Time) View {
	j.mu.Lock()
	defer j.mu.Unlock()

	log := j.log
	log.QCTimeSpentSeconds += j.runningSeconds(now)
	log.Rationales = append([]models.CorrectionRationale(nil), j.log.Rationales...)
	log.WorkflowTimeCodes = append([]models.WorkflowTimeCode(nil), j.log.WorkflowTimeCodes...)
	return View{
		Log:       log,
		Source:    append([]string(nil), j.source...),
		Pages:     append([]string(nil), j.pages...),
		Reviewing: j.reviewing,
	}
}

// Status returns the current QC status.
func (j *Job) Status() models.QCStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Status
}

// SetTranslation stores the translated pages and moves Draft to QC Pending.
// Retranslating a pending job replaces the pages, until the first correction
// is committed.
func (j *Job) SetTranslation(pages, back []string, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.log.Status {
	case models.QCDraft, models.QCPending:
	default:
		return fmt.Errorf("%w: cannot translate a %s document", ErrInvalidTransition, j.log.Status)
	}
	if len(j.log.Rationales) > 0 {
		return fmt.Errorf("%w: document already carries reviewer corrections", ErrInvalidTransition)
	}
	j.pages = append([]string(nil), pages...)
	j.log.BackTranslation = back
	j.log.Status = models.QCPending
	j.event(EventTranslated, now)
	return nil
}

// StartReview starts the QC timer. The timer only runs while the status is
// Draft or QC Pending.
func (j *Job) StartReview(now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !timed(j.log.Status) {
		return fmt.Errorf("%w: review of a %s document", ErrInvalidTransition, j.log.Status)
	}
	if j.reviewing {
		return nil
	}
	j.reviewing = true
	j.reviewSince = now
	j.event(EventReviewStarted, now)
	return nil
}

// StopReview pauses the QC timer and banks the elapsed seconds.
func (j *Job) StopReview(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopTimer(now) {
		j.event(EventReviewStopped, now)
	}
}

// ApplyCorrection replaces exactly one word of a translated page and appends
// exactly one rationale. Nothing changes when the correction is rejected.
func (j *Job) ApplyCorrection(c Correction, now time.Time) (models.CorrectionRationale, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.log.Status != models.QCPending {
		return models.CorrectionRationale{}, fmt.Errorf("%w: corrections need a QC Pending document, have %s", ErrInvalidTransition, j.log.Status)
	}
	if c.PageIndex < 0 || c.PageIndex >= len(j.pages) {
		return models.CorrectionRationale{}, fmt.Errorf("%w: page %d out of range", ErrInvalidCorrection, c.PageIndex)
	}
	replacement := strings.TrimSpace(c.Replacement)
	if replacement == "" || strings.ContainsAny(replacement, " \t\r\n") {
		return models.CorrectionRationale{}, fmt.Errorf("%w: replacement must be a single word", ErrInvalidCorrection)
	}
	if strings.TrimSpace(c.Rationale) == "" {
		return models.CorrectionRationale{}, fmt.Errorf("%w: rationale is required", ErrInvalidCorrection)
	}
	if c.Severity == "" {
		c.Severity = models.SeverityMinor
	}
	if c.Type == "" {
		c.Type = models.TypeTerminology
	}
	if !c.Severity.Valid() || !c.Type.Valid() {
		return models.CorrectionRationale{}, fmt.Errorf("%w: unknown MQM severity or type", ErrInvalidCorrection)
	}

	updated, original, ok := replaceWord(j.pages[c.PageIndex], c.WordIndex, replacement)
	if !ok {
		return models.CorrectionRationale{}, fmt.Errorf("%w: word %d out of range", ErrInvalidCorrection, c.WordIndex)
	}
	j.pages[c.PageIndex] = updated

	r := models.CorrectionRationale{
		OriginalText: original,
		UpdatedText:  replacement,
		Rationale:    strings.TrimSpace(c.Rationale),
		Timestamp:    now.UnixMilli(),
		PageIndex:    c.PageIndex,
		WordIndex:    c.WordIndex,
		MQMSeverity:  c.Severity,
		MQMType:      c.Type,
	}
	j.log.Rationales = append(j.log.Rationales, r)
	j.log.HumanCorrectionVolume = len(j.log.Rationales)
	j.score()
	j.event(EventCorrection, now)
	return r, nil
}

// Finalize signs off the review. It needs a non-blank reviewer name and a QC
// Pending document.
func (j *Job) Finalize(reviewer string, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return ErrReviewerRequired
	}
	if j.log.Status != models.QCPending {
		return fmt.Errorf("%w: cannot finalize a %s document", ErrInvalidTransition, j.log.Status)
	}

	j.stopTimer(now)
	j.log.QCReviewerName = reviewer
	j.log.CertifiedAt = now.UnixMilli()
	j.log.Status = models.QCFinalized
	j.score()
	j.event(EventFinalized, now)
	return nil
}

// MarkDownloaded records an export. Only finalized documents become
// Downloaded; for any other status the export leaves the status alone and
// false is returned.
func (j *Job) MarkDownloaded(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.log.Status {
	case models.QCFinalized, models.QCDownloaded:
		j.log.Status = models.QCDownloaded
		j.event(EventDownloaded, now)
		return true
	}
	return false
}

// Pages returns a copy of the translated pages.
func (j *Job) Pages() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.pages...)
}

// MQMScore returns the weighted error score of the corrections and the
// quality score against wordCount.
func MQMScore(rationales []models.CorrectionRationale, wordCount int) (errorScore, quality float64) {
	for _, r := range rationales {
		errorScore += severityWeights[r.MQMSeverity]
	}
	if wordCount <= 0 {
		if errorScore > 0 {
			return errorScore, 0
		}
		return 0, 100
	}
	quality = math.Max(0, 100-errorScore*100/float64(wordCount))
	return errorScore, quality
}

// score must be called with mu held.
func (j *Job) score() {
	j.log.MQMErrorScore, j.log.QualityScore = MQMScore(j.log.Rationales, j.log.WordCount)
}

// event must be called with mu held.
func (j *Job) event(name string, now time.Time) {
	j.log.WorkflowTimeCodes = append(j.log.WorkflowTimeCodes, models.WorkflowTimeCode{
		Event:     name,
		Timestamp: now.UnixMilli(),
	})
}

// stopTimer must be called with mu held.
func (j *Job) stopTimer(now time.Time) bool {
	if !j.reviewing {
		return false
	}
	j.log.QCTimeSpentSeconds += j.runningSeconds(now)
	j.reviewing = false
	return true
}

func (j *Job) runningSeconds(now time.Time) int {
	if !j.reviewing || !timed(j.log.Status) || now.Before(j.reviewSince) {
		return 0
	}
	return int(now.Sub(j.reviewSince) / time.Second)
}

func (j *Job) snapshotLog() models.TranslationLog {
	j.mu.Lock()
	defer j.mu.Unlock()
	log := j.log
	log.Rationales = append([]models.CorrectionRationale(nil), j.log.Rationales...)
	log.WorkflowTimeCodes = append([]models.WorkflowTimeCode(nil), j.log.WorkflowTimeCodes...)
	return log
}

func timed(s models.QCStatus) bool {
	return s == models.QCDraft || s == models.QCPending
}

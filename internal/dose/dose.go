// Package dose manages the Phase 1 dose escalation workbook: study
// configuration, validated subject records and the AI escalation analysis.
package dose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"reggenie/internal/audit"
	"reggenie/internal/llm"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

// Study is the workbook of one Phase 1 study.
type Study struct {
	ID                 string    `json:"id"`
	ProjectName        string    `json:"projectName"`
	TherapeuticArea    string    `json:"therArea"`
	ProductName        string    `json:"productName"`
	Design             string    `json:"design"`
	TargetToxicityRate float64   `json:"targetToxicityRate"`
	StartDose          float64   `json:"startDose"`
	MaxDose            float64   `json:"maxDose"`
	CohortSize         int       `json:"cohortSize"`
	Subjects           []Subject `json:"subjects"`
}

func (s Study) GetID() string { return s.ID }

// DefaultStudy is the workbook a new user starts from.
func DefaultStudy() Study {
	return Study{
		ID:                 "PH1-2025-AIDE",
		ProjectName:        "PH1-2025-AIDE",
		TherapeuticArea:    "Oncology / Immunology",
		ProductName:        "AIDE-101 (Novel IO Agent)",
		Design:             "3+3",
		TargetToxicityRate: 0.25,
		StartDose:          0.1,
		MaxDose:            10.0,
		CohortSize:         3,
		Subjects:           []Subject{},
	}
}

// Analysis is the AI escalation recommendation.
type Analysis struct {
	Recommendation string     `json:"recommendation"`
	PredictedMTD   string     `json:"predictedMTD"`
	Rationale      string     `json:"rationale"`
	SafetyWarnings []string   `json:"safetyWarnings"`
	NextSteps      []string   `json:"nextSteps"`
	Rule           RuleResult `json:"ruleBasedDecision"`
}

var (
	ErrStudyNotFound = errors.New("study not found")
	ErrNoSubjects    = errors.New("at least one subject is required for analysis")
)

var analysisSchema = llm.Object(map[string]*llm.Schema{
	"recommendation": llm.String(),
	"predictedMTD":   llm.String(),
	"rationale":      llm.String(),
	"safetyWarnings": llm.StringList(),
	"nextSteps":      llm.StringList(),
})

type Service struct {
	gen     llm.Generator
	studies *store.Collection[Study]
	rec     audit.Recorder
	logger  *zap.Logger

	// serialises read-modify-write of a study
	mu sync.Mutex
}

// NewService keeps workbooks in the local store.
func NewService(gen llm.Generator, local store.Local, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		gen: gen,
		studies: store.NewCollection(store.Options[Study]{
			Name:      "dose_studies",
			LocalKey:  store.DoseStudiesKey,
			Defaults:  func() []Study { return []Study{DefaultStudy()} },
			LocalOnly: true,
		}, local, nil, logger),
		rec:    rec,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) []Study {
	studies, _ := s.studies.Get(ctx)
	return studies
}

func (s *Service) Get(ctx context.Context, id string) (Study, error) {
	st, ok := s.studies.Find(ctx, id)
	if !ok {
		return Study{}, ErrStudyNotFound
	}
	if st.Subjects == nil {
		st.Subjects = []Subject{}
	}
	return st, nil
}

// Configure creates or updates a study's configuration. Recorded subjects
// are kept.
func (s *Service) Configure(ctx context.Context, cfg Study) (Study, error) {
	cfg.ProjectName = strings.TrimSpace(cfg.ProjectName)
	if cfg.ProjectName == "" {
		return Study{}, &ValidationError{Fields: map[string]string{"projectName": "Project name required"}}
	}
	if cfg.ID == "" {
		cfg.ID = cfg.ProjectName
	}
	def := DefaultStudy()
	if cfg.Design == "" {
		cfg.Design = def.Design
	}
	if cfg.CohortSize <= 0 {
		cfg.CohortSize = def.CohortSize
	}
	if cfg.TargetToxicityRate <= 0 || cfg.TargetToxicityRate >= 1 {
		cfg.TargetToxicityRate = def.TargetToxicityRate
	}
	if cfg.StartDose <= 0 {
		cfg.StartDose = def.StartDose
	}
	if cfg.MaxDose < cfg.StartDose {
		return Study{}, &ValidationError{Fields: map[string]string{"maxDose": "Max dose must not be below the start dose"}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.Subjects = []Subject{}
	if existing, err := s.Get(ctx, cfg.ID); err == nil {
		cfg.Subjects = existing.Subjects
	}
	s.studies.Save(ctx, cfg)
	return cfg, nil
}

// AddSubject validates and records a subject, then audits the entry.
func (s *Service) AddSubject(ctx context.Context, studyID string, sub Subject, user string) (Study, error) {
	sub.ID = strings.TrimSpace(sub.ID)
	if err := sub.Validate(); err != nil {
		return Study{}, err
	}

	s.mu.Lock()
	st, err := s.Get(ctx, studyID)
	if err != nil {
		s.mu.Unlock()
		return Study{}, err
	}
	for _, existing := range st.Subjects {
		if existing.ID == sub.ID {
			s.mu.Unlock()
			return Study{}, &ValidationError{Fields: map[string]string{"id": "Subject ID already recorded"}}
		}
	}
	if sub.Cohort == "" {
		sub.Cohort = "1"
	}
	st.Subjects = append(st.Subjects, sub)
	s.studies.Save(ctx, st)
	s.mu.Unlock()

	s.rec.Record(ctx, audit.ActionSubjectCreated, user, models.ModuleDose,
		fmt.Sprintf("Recorded subject %s findings at dose level %gmg. AE Grade: %d, DLT: %t", sub.ID, sub.Dose, sub.AEGrade, sub.DLT))
	s.logger.Info("Subject recorded", zap.String("study", studyID), zap.String("subject", sub.ID))
	return st, nil
}

// Analyze asks the model for an escalation recommendation. The 3+3 rule
// result for the latest cohort is computed locally and given to the model.
func (s *Service) Analyze(ctx context.Context, studyID, user string) (Analysis, error) {
	st, err := s.Get(ctx, studyID)
	if err != nil {
		return Analysis{}, err
	}
	if len(st.Subjects) == 0 {
		return Analysis{}, ErrNoSubjects
	}

	rule := ThreePlusThree(st.Subjects, st.CohortSize)
	prompt, err := analysisPrompt(st, rule)
	if err != nil {
		return Analysis{}, err
	}

	var out Analysis
	if err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: prompt, Schema: analysisSchema}, &out); err != nil {
		s.logger.Error("Dose escalation analysis failed", zap.String("study", studyID), zap.Error(err))
		return Analysis{}, fmt.Errorf("AI analysis failed: %w", err)
	}
	if out.SafetyWarnings == nil {
		out.SafetyWarnings = []string{}
	}
	if out.NextSteps == nil {
		out.NextSteps = []string{}
	}
	out.Rule = rule

	cohort := st.Subjects[len(st.Subjects)-1].Cohort
	if cohort == "" {
		cohort = "unknown"
	}
	s.rec.Record(ctx, audit.ActionDoseAnalysis, user, models.ModuleDose,
		fmt.Sprintf("Performed AI dose escalation analysis for cohort %s. Result: %s", cohort, out.Recommendation))
	return out, nil
}

func analysisPrompt(st Study, rule RuleResult) (string, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode study: %w", err)
	}
	return fmt.Sprintf(`You are a Phase 1 clinical pharmacologist supporting a dose escalation committee.
Design: %s. Target toxicity rate: %.2f. Dose range: %g to %g mg.
The %s rule applied to cohort %s gives: %s (%s).

Review the study data below (safety labs, AE grades, DLTs, PK where present) and return
recommendation (Escalate, Stay, De-escalate or Stop), predictedMTD, rationale,
safetyWarnings and nextSteps.

STUDY DATA:
%s`, st.Design, st.TargetToxicityRate, st.StartDose, st.MaxDose,
		st.Design, rule.Cohort, rule.Decision, rule.Reason, data), nil
}

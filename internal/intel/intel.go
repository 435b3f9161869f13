// Package intel holds the AI-backed regulatory intelligence operations: risk
// assessment, metadata extraction, web-search import, news and TMF checklists.
package intel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/catalog"
	"reggenie/internal/llm"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

// ErrInputRequired rejects blank text, queries and news titles.
var ErrInputRequired = errors.New("input is required")

// Regulations is the part of the regulation service intel writes to.
type Regulations interface {
	Add(ctx context.Context, entry models.RegulationEntry, user string) (models.RegulationEntry, error)
}

type Service struct {
	gen    llm.Generator
	local  store.Local
	regs   Regulations
	logger *zap.Logger
	now    func() time.Time
}

func NewService(gen llm.Generator, local store.Local, regs Regulations, logger *zap.Logger) *Service {
	return &Service{gen: gen, local: local, regs: regs, logger: logger, now: time.Now}
}

var analysisSchema = llm.Object(map[string]*llm.Schema{
	"summary":              llm.String(),
	"operationalImpact":    llm.String(),
	"complianceRisk":       llm.String(),
	"riskRationale":        llm.String(),
	"keyChanges":           llm.StringList(),
	"riskLevel":            llm.String(),
	"mitigationStrategies": llm.StringList(),
	"actionItems":          llm.StringList(),
})

// FallbackAnalysis is returned whenever the assessment cannot be produced.
func FallbackAnalysis() models.AnalysisResult {
	return models.AnalysisResult{
		Summary:              "Analysis could not be completed at this time. Ensure the API key is valid.",
		OperationalImpact:    "Analysis unavailable due to an error.",
		ComplianceRisk:       "Analysis unavailable.",
		RiskRationale:        "Analysis unavailable.",
		KeyChanges:           []string{},
		MitigationStrategies: []string{},
		ActionItems:          []string{},
		RiskLevel:            "Unknown",
	}
}

// Analyze produces the impact and risk assessment of a regulation. It never
// fails: errors are logged and the fallback result is returned.
func (s *Service) Analyze(ctx context.Context, r models.RegulationEntry) models.AnalysisResult {
	var result models.AnalysisResult
	err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: analysisPrompt(r), Schema: analysisSchema}, &result)
	if err != nil {
		s.logger.Error("Error analyzing regulation", zap.String("id", r.ID), zap.Error(err))
		return FallbackAnalysis()
	}
	if result.KeyChanges == nil {
		result.KeyChanges = []string{}
	}
	if result.MitigationStrategies == nil {
		result.MitigationStrategies = []string{}
	}
	if result.ActionItems == nil {
		result.ActionItems = []string{}
	}
	return result
}

// extracted mirrors what the model returns for a single entry.
type extracted struct {
	Title         string `json:"title"`
	Agency        string `json:"agency"`
	Region        string `json:"region"`
	Country       string `json:"country"`
	Date          string `json:"date"`
	EffectiveDate string `json:"effectiveDate"`
	Category      string `json:"category"`
	Summary       string `json:"summary"`
	Impact        string `json:"impact"`
	Status        string `json:"status"`
	URL           string `json:"url"`
}

// Extract turns pasted text into a regulation draft with defaults applied.
// The draft is not saved.
func (s *Service) Extract(ctx context.Context, raw string) (models.RegulationEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.RegulationEntry{}, fmt.Errorf("%w: text", ErrInputRequired)
	}

	var out extracted
	if err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: extractionPrompt(raw)}, &out); err != nil {
		s.logger.Error("Error parsing new entry", zap.Error(err))
		return models.RegulationEntry{}, fmt.Errorf("failed to extract entry: %w", err)
	}

	entry := out.toEntry()
	entry.Content = raw
	return entry, nil
}

// ImportText extracts an entry from raw text and saves it.
func (s *Service) ImportText(ctx context.Context, raw, user string) (models.RegulationEntry, error) {
	entry, err := s.Extract(ctx, raw)
	if err != nil {
		return models.RegulationEntry{}, err
	}
	return s.regs.Add(ctx, entry, user)
}

func (e extracted) toEntry() models.RegulationEntry {
	entry := models.RegulationEntry{
		Title:         strings.TrimSpace(e.Title),
		Agency:        e.Agency,
		Country:       or(e.Country, "Global"),
		Date:          e.Date,
		EffectiveDate: or(e.EffectiveDate, "TBD"),
		Category:      normalizeCategory(e.Category),
		Summary:       e.Summary,
		Impact:        normalizeImpact(e.Impact),
		Status:        normalizeStatus(e.Status),
		URL:           strings.TrimSpace(e.URL),
	}
	entry.Region = normalizeRegion(e.Region, entry.Country)
	return entry
}

func or(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" || strings.EqualFold(v, "unknown") {
		return fallback
	}
	return v
}

func normalizeCategory(v string) models.Category {
	for _, c := range models.Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(v)) {
			return c
		}
	}
	return models.CategoryClinicalResearch
}

func normalizeRegion(v, country string) models.Region {
	for _, r := range models.Regions {
		if strings.EqualFold(string(r), strings.TrimSpace(v)) {
			return r
		}
	}
	if country != "" && country != "Global" {
		return catalog.RegionOf(country)
	}
	return models.RegionGlobal
}

func normalizeImpact(v string) models.ImpactLevel {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return models.ImpactHigh
	case "medium":
		return models.ImpactMedium
	case "low":
		return models.ImpactLow
	default:
		return models.ImpactUnknown
	}
}

func normalizeStatus(v string) models.RegulationStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "final":
		return models.StatusFinal
	case "consultation":
		return models.StatusConsultation
	default:
		return models.StatusDraft
	}
}

var tmfSchema = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
	"zone":             llm.String(),
	"documentName":     llm.String(),
	"description":      llm.String(),
	"mandatory":        {Type: llm.TypeBoolean},
	"localRequirement": llm.String(),
}))

// TMFChecklist returns the DIA TMF reference model checklist for a country,
// empty on failure.
func (s *Service) TMFChecklist(ctx context.Context, country string) []models.TMFDocument {
	country = or(country, "Global")

	var docs []models.TMFDocument
	if err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: tmfPrompt(country), Schema: tmfSchema}, &docs); err != nil {
		s.logger.Error("Error generating TMF checklist", zap.String("country", country), zap.Error(err))
		return []models.TMFDocument{}
	}
	if docs == nil {
		docs = []models.TMFDocument{}
	}
	return docs
}

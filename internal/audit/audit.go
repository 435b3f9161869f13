// Package audit records user actions and clinical decisions.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"reggenie/internal/models"
	"reggenie/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common actions.
const (
	ActionSubjectCreated       = "SUBJECT_RECORD_CREATED"
	ActionDoseAnalysis         = "DOSE_ANALYSIS_PERFORMED"
	ActionReportGenerated      = "REPORT_GENERATED"
	ActionLetterGenerated      = "LETTER_GENERATED"
	ActionTranslationFinalized = "TRANSLATION_QC_FINALIZED"
	ActionTranslationExported  = "TRANSLATION_EXPORTED"
	ActionRiskOverride         = "RISK_OVERRIDE"
	ActionRegulationAdded      = "REGULATION_ADDED"
	ActionICFGenerated         = "ICF_GENERATED"
	ActionSettingsUpdated      = "SETTINGS_UPDATED"
)

// Recorder is what other services depend on.
type Recorder interface {
	Record(ctx context.Context, action, user string, module models.AppModule, details string) models.AuditEntry
}

type Service struct {
	logs   *store.Collection[models.AuditEntry]
	logger *zap.Logger
	now    func() time.Time
}

func NewService(local store.Local, remote store.Remote, logger *zap.Logger) *Service {
	return &Service{
		logs: store.NewCollection(store.Options[models.AuditEntry]{
			Name:     store.AuditLogsCollection,
			LocalKey: store.AuditLogsKey,
			Less:     func(a, b models.AuditEntry) bool { return a.Timestamp > b.Timestamp },
		}, local, remote, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Record saves an audit entry. Entries are written through the generic
// helper, so a failing store only loses the remote copy.
func (s *Service) Record(ctx context.Context, action, user string, module models.AppModule, details string) models.AuditEntry {
	ts := s.now().UnixMilli()
	entry := models.AuditEntry{
		ID:        fmt.Sprintf("AUDIT-%d-%s", ts, uuid.NewString()[:8]),
		Timestamp: ts,
		Action:    action,
		User:      user,
		Module:    module,
		Details:   details,
	}
	s.logs.Save(ctx, entry)

	s.logger.Info("Audit entry recorded",
		zap.String("action", action),
		zap.String("module", string(module)),
		zap.String("user", user))
	return entry
}

// List returns entries newest first, optionally restricted to one module.
func (s *Service) List(ctx context.Context, module models.AppModule) []models.AuditEntry {
	entries, _ := s.logs.Get(ctx)
	if module == "" {
		return entries
	}
	out := make([]models.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if e.Module == module {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

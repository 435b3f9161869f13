// Package regulation owns the regulation list: persistence, the database view
// filters and the dashboard aggregates.
package regulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/catalog"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidRiskLevel = errors.New("risk level must be Low, Medium, High or Critical")
)

var riskLevels = map[string]struct{}{"Low": {}, "Medium": {}, "High": {}, "Critical": {}}

type Service struct {
	regs   *store.Collection[models.RegulationEntry]
	audit  audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewService(local store.Local, remote store.Remote, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		regs: store.NewCollection(store.Options[models.RegulationEntry]{
			Name:     store.RegulationsCollection,
			LocalKey: store.RegulationsKey,
			Defaults: catalog.InitialRegulations,
			Less:     func(a, b models.RegulationEntry) bool { return a.Date > b.Date },
		}, local, remote, logger),
		audit:  rec,
		logger: logger,
		now:    time.Now,
	}
}

// All returns every regulation, newest first, and the tier that served them.
func (s *Service) All(ctx context.Context) ([]models.RegulationEntry, store.Tier) {
	return s.regs.Get(ctx)
}

// List applies the database view filters and sort.
func (s *Service) List(ctx context.Context, f models.DatabaseFilters, srt Sort) ([]models.RegulationEntry, store.Tier) {
	all, tier := s.regs.Get(ctx)
	return Apply(all, f, srt), tier
}

func (s *Service) Get(ctx context.Context, id string) (models.RegulationEntry, error) {
	entry, ok := s.regs.Find(ctx, id)
	if !ok {
		return models.RegulationEntry{}, fmt.Errorf("regulation %s: %w", id, store.ErrNotFound)
	}
	return entry, nil
}

// Stats computes the dashboard aggregates.
func (s *Service) Stats(ctx context.Context) Stats {
	all, _ := s.regs.Get(ctx)
	return ComputeStats(all)
}

// Add saves a new regulation, filling in id, tracking id and region.
func (s *Service) Add(ctx context.Context, entry models.RegulationEntry, user string) (models.RegulationEntry, error) {
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.Title == "" {
		return models.RegulationEntry{}, ErrTitleRequired
	}

	now := s.now()
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("reg-%d", now.UnixMilli())
	}
	if entry.Country == "" {
		entry.Country = "Global"
	}
	if entry.Region == "" {
		entry.Region = catalog.RegionOf(entry.Country)
	}
	if entry.Impact == "" {
		entry.Impact = models.ImpactUnknown
	}
	if entry.Status == "" {
		entry.Status = models.StatusDraft
	}
	if entry.TrackingID == "" {
		entry.TrackingID = s.nextTrackingID(ctx, now.Year())
	}
	entry.LastChecked = now.UnixMilli()
	entry.IsNew = true

	s.regs.Save(ctx, entry)
	s.audit.Record(ctx, audit.ActionRegulationAdded, user, models.ModuleDatabase,
		fmt.Sprintf("Added %s (%s)", entry.Title, entry.ID))

	s.logger.Info("Regulation added", zap.String("id", entry.ID), zap.String("agency", entry.Agency))
	return entry, nil
}

// Update replaces a regulation by id with a merging remote write.
func (s *Service) Update(ctx context.Context, entry models.RegulationEntry) error {
	if _, err := s.Get(ctx, entry.ID); err != nil {
		return err
	}
	entry.LastChecked = s.now().UnixMilli()
	s.regs.Update(ctx, entry)
	return nil
}

// OverrideRisk records an admin-approved risk level and rationale.
func (s *Service) OverrideRisk(ctx context.Context, id, level, rationale, user string) (models.RegulationEntry, error) {
	level = strings.TrimSpace(level)
	if _, ok := riskLevels[level]; !ok {
		return models.RegulationEntry{}, ErrInvalidRiskLevel
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return models.RegulationEntry{}, err
	}

	entry.RiskLevel = level
	entry.RiskRationale = strings.TrimSpace(rationale)
	entry.AdminApproved = true
	entry.LastChecked = s.now().UnixMilli()
	s.regs.Update(ctx, entry)

	s.audit.Record(ctx, audit.ActionRiskOverride, user, models.ModuleDatabase,
		fmt.Sprintf("Risk for %s set to %s", id, level))

	s.logger.Info("Risk level overridden", zap.String("id", id), zap.String("risk_level", level))
	return entry, nil
}

// nextTrackingID returns REG-<year>-NNN following the highest number in use.
func (s *Service) nextTrackingID(ctx context.Context, year int) string {
	all, _ := s.regs.Get(ctx)
	prefix := fmt.Sprintf("REG-%d-", year)
	next := 1
	for _, r := range all {
		if !strings.HasPrefix(r.TrackingID, prefix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(r.TrackingID, prefix), "%d", &n); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, next)
}

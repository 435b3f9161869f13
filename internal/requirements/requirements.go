// Package requirements keeps the requirement traceability matrix.
package requirements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/catalog"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

const statusImplemented = "Implemented"

var ErrPromptRequired = errors.New("prompt is required")

type Service struct {
	reqs   *store.Collection[models.BuildRequirement]
	logger *zap.Logger
	now    func() time.Time
}

func NewService(local store.Local, remote store.Remote, logger *zap.Logger) *Service {
	return &Service{
		reqs: store.NewCollection(store.Options[models.BuildRequirement]{
			Name:     store.RequirementsCollection,
			LocalKey: store.RequirementsKey,
			Defaults: catalog.BuildHistory,
			Less:     func(a, b models.BuildRequirement) bool { return a.Timestamp > b.Timestamp },
		}, local, remote, logger),
		logger: logger,
		now:    time.Now,
	}
}

// List returns every requirement, newest first.
func (s *Service) List(ctx context.Context) []models.BuildRequirement {
	reqs, _ := s.reqs.Get(ctx)
	return reqs
}

// AddRequest describes a new requirement.
type AddRequest struct {
	Version string   `json:"version" binding:"required"`
	Prompt  string   `json:"prompt" binding:"required"`
	Scope   []string `json:"scope"`
	Status  string   `json:"status"`
}

// Add appends a requirement with the next BR-NNN id.
func (s *Service) Add(ctx context.Context, req AddRequest) (models.BuildRequirement, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return models.BuildRequirement{}, ErrPromptRequired
	}

	existing := s.List(ctx)
	next := 1
	for _, r := range existing {
		var n int
		if _, err := fmt.Sscanf(r.ID, "BR-%d", &n); err == nil && n >= next {
			next = n + 1
		}
	}

	status := req.Status
	if status == "" {
		status = statusImplemented
	}
	entry := models.BuildRequirement{
		ID:        fmt.Sprintf("BR-%03d", next),
		Version:   req.Version,
		Timestamp: s.now().UnixMilli(),
		Prompt:    strings.TrimSpace(req.Prompt),
		Status:    status,
		Scope:     req.Scope,
	}
	s.reqs.Save(ctx, entry)

	s.logger.Info("Build requirement added", zap.String("id", entry.ID), zap.String("version", entry.Version))
	return entry, nil
}

package regulation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reggenie/internal/localstore"
	"reggenie/internal/models"
	"reggenie/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorded struct {
	action string
	module models.AppModule
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (f *fakeRecorder) Record(_ context.Context, action, _ string, module models.AppModule, _ string) models.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recorded{action, module})
	return models.AuditEntry{Action: action}
}

func newTestService(t *testing.T) (*Service, *fakeRecorder) {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "regs.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	rec := &fakeRecorder{}
	svc := NewService(local, nil, rec, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	return svc, rec
}

func TestService_SeedAndAdd(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	all, tier := svc.All(ctx)
	assert.Equal(t, store.TierDefault, tier)
	require.Len(t, all, 1)

	added, err := svc.Add(ctx, models.RegulationEntry{Title: "  New CTR guidance ", Country: "Germany", Date: "2025-03-01"}, "Admin User")
	require.NoError(t, err)
	assert.Equal(t, "New CTR guidance", added.Title)
	assert.Equal(t, models.RegionEU, added.Region)
	assert.Equal(t, models.ImpactUnknown, added.Impact)
	assert.Equal(t, models.StatusDraft, added.Status)
	assert.Equal(t, "REG-2025-001", added.TrackingID)
	assert.True(t, added.IsNew)

	all, tier = svc.All(ctx)
	assert.Equal(t, store.TierLocal, tier)
	require.Len(t, all, 2)
	assert.Equal(t, added.ID, all[0].ID)

	second, err := svc.Add(ctx, models.RegulationEntry{ID: "x2", Title: "Another"}, "Admin User")
	require.NoError(t, err)
	assert.Equal(t, "REG-2025-002", second.TrackingID)
	assert.Equal(t, models.RegionGlobal, second.Region)

	assert.Len(t, rec.entries, 2)
}

func TestService_AddRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Add(context.Background(), models.RegulationEntry{Title: "   "}, "u")
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestService_OverrideRisk(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.OverrideRisk(ctx, "15", "Extreme", "", "Admin User")
	assert.ErrorIs(t, err, ErrInvalidRiskLevel)

	_, err = svc.OverrideRisk(ctx, "missing", "High", "", "Admin User")
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := svc.OverrideRisk(ctx, "15", "Critical", " Sandbox affects all AIaMD ", "Admin User")
	require.NoError(t, err)
	assert.Equal(t, "Critical", updated.RiskLevel)
	assert.Equal(t, "Sandbox affects all AIaMD", updated.RiskRationale)
	assert.True(t, updated.AdminApproved)

	got, err := svc.Get(ctx, "15")
	require.NoError(t, err)
	assert.Equal(t, "Critical", got.RiskLevel)
	assert.Equal(t, "MHRA AI Airlock: Regulatory Sandbox for AI Medical Devices", got.Title)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, models.ModuleDatabase, rec.entries[0].module)
}

func TestService_ListAndStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.RegulationEntry{ID: "a", Title: "Draft thing", Date: "2025-01-01", Impact: models.ImpactHigh}, "u")
	require.NoError(t, err)

	drafts, _ := svc.List(ctx, models.DatabaseFilters{Status: []string{"Draft"}}, Sort{})
	require.Len(t, drafts, 1)
	assert.Equal(t, "a", drafts[0].ID)

	st := svc.Stats(ctx)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.HighImpact)
	assert.Equal(t, 1, st.Drafts)
}

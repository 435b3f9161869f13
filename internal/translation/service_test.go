package translation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/localstore"
	"reggenie/internal/llm"
	"reggenie/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGen struct {
	mu       sync.Mutex
	generate func(req llm.Request) (string, error)
	requests []llm.Request
}

func (f *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.generate(req)
}

func (f *fakeGen) Search(context.Context, string) (*llm.SearchResult, error) {
	return nil, errors.New("not supported")
}

type fakeRecorder struct {
	actions []string
}

func (f *fakeRecorder) Record(_ context.Context, action, _ string, _ models.AppModule, _ string) models.AuditEntry {
	f.actions = append(f.actions, action)
	return models.AuditEntry{Action: action}
}

// translator answers every prompt kind with something recognisable.
func translator(req llm.Request) (string, error) {
	switch {
	case strings.HasPrefix(req.Prompt, "Identify the primary language"):
		return " English.\n", nil
	case strings.HasPrefix(req.Prompt, "Translate the following text back"):
		return "BACK", nil
	case strings.HasPrefix(req.Prompt, "Translate page"):
		return "Hola mundo del ensayo", nil
	case req.JSON:
		return `["planeta", "mundo", "", "orbe"]`, nil
	}
	return "", errors.New("unexpected prompt")
}

var svcNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, gen *fakeGen) (*Service, *fakeRecorder) {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "translation.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	rec := &fakeRecorder{}
	svc := NewService(gen, local, rec, zap.NewNop())
	svc.now = func() time.Time { return svcNow }
	return svc, rec
}

func TestCreate(t *testing.T) {
	gen := &fakeGen{generate: translator}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateRequest{Pages: []string{"Hello trial world", "Page two"}})
	require.NoError(t, err)

	assert.Equal(t, "trans-1749988800000", v.Log.ID)
	assert.Equal(t, "2025-001", v.Log.TrackingID)
	assert.Equal(t, "English", v.Log.SourceLanguage)
	assert.Equal(t, "Spanish", v.Log.TargetLanguage)
	assert.Equal(t, "AZ-PH1-2025", v.Log.ProjectNumber)
	assert.Equal(t, models.QCDraft, v.Log.Status)
	assert.Equal(t, 5, v.Log.WordCount)
	assert.Equal(t, 7, v.Log.TokenCount)
	assert.Equal(t, 2, v.Log.PageCount)

	v2, err := svc.Create(ctx, CreateRequest{Pages: []string{"Another"}})
	require.NoError(t, err)
	assert.Equal(t, "2025-002", v2.Log.TrackingID)
	assert.NotEqual(t, v.Log.ID, v2.Log.ID)

	assert.Len(t, svc.Logs(ctx), 2)

	_, err = svc.Create(ctx, CreateRequest{Pages: []string{"  "}})
	assert.ErrorIs(t, err, ErrEmptyDocument)
	_, err = svc.Create(ctx, CreateRequest{Pages: []string{"x"}, TargetLanguage: "Klingon"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestExportDate(t *testing.T) {
	svc, _ := newTestService(t, &fakeGen{generate: translator})

	assert.Equal(t, svcNow, svc.ExportDate(models.TranslationLog{}))

	certified := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, certified, svc.ExportDate(models.TranslationLog{CertifiedAt: certified.UnixMilli()}))
}

func TestDetectLanguageFailure(t *testing.T) {
	gen := &fakeGen{generate: func(llm.Request) (string, error) { return "", errors.New("quota") }}
	svc, _ := newTestService(t, gen)

	assert.Equal(t, "Unknown", svc.DetectLanguage(context.Background(), "Bonjour"))
	assert.Equal(t, "Unknown", svc.DetectLanguage(context.Background(), ""))
}

func TestDetectLanguageSamplesPrefix(t *testing.T) {
	gen := &fakeGen{generate: translator}
	svc, _ := newTestService(t, gen)

	svc.DetectLanguage(context.Background(), strings.Repeat("a", 5000))
	require.Len(t, gen.requests, 1)
	assert.Less(t, len(gen.requests[0].Prompt), 1200)
}

func TestWorkflow(t *testing.T) {
	gen := &fakeGen{generate: translator}
	svc, rec := newTestService(t, gen)
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateRequest{Pages: []string{"Hello world of the trial"}, CulturalNuances: true})
	require.NoError(t, err)
	id := v.Log.ID

	v, err = svc.Translate(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, models.QCPending, v.Log.Status)
	assert.Equal(t, []string{"Hola mundo del ensayo"}, v.Pages)
	assert.Equal(t, []string{"BACK"}, v.Log.BackTranslation)

	var system string
	for _, r := range gen.requests {
		if strings.HasPrefix(r.Prompt, "Translate page") {
			system = r.System
		}
	}
	assert.Contains(t, system, "Medical Accuracy + Cultural Nuance")

	alts, err := svc.Alternatives(ctx, id, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"planeta", "orbe"}, alts)

	_, err = svc.StartReview(ctx, id)
	require.NoError(t, err)

	v, err = svc.Correct(ctx, id, Correction{PageIndex: 0, WordIndex: 1, Replacement: "planeta", Severity: models.SeverityMinor, Rationale: "literal"})
	require.NoError(t, err)
	assert.Equal(t, "Hola planeta del ensayo", v.Pages[0])

	_, err = svc.Finalize(ctx, id, "", "Admin User")
	assert.ErrorIs(t, err, ErrReviewerRequired)

	v, err = svc.Finalize(ctx, id, "Dr. Reyes", "Admin User")
	require.NoError(t, err)
	assert.Equal(t, models.QCFinalized, v.Log.Status)

	v, err = svc.MarkExported(ctx, id, "doc", "Admin User")
	require.NoError(t, err)
	assert.Equal(t, models.QCDownloaded, v.Log.Status)
	assert.Equal(t, []string{audit.ActionTranslationFinalized, audit.ActionTranslationExported}, rec.actions)

	logs := svc.Logs(ctx)
	require.Len(t, logs, 1)
	assert.Equal(t, models.QCDownloaded, logs[0].Status)
	assert.Len(t, logs[0].Rationales, 1)
	assert.Equal(t, "Dr. Reyes", logs[0].QCReviewerName)
}

func TestTranslateFailureKeepsDraft(t *testing.T) {
	gen := &fakeGen{generate: func(req llm.Request) (string, error) {
		if strings.HasPrefix(req.Prompt, "Translate page") {
			return "", errors.New("boom")
		}
		return "English", nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateRequest{Pages: []string{"Hello"}})
	require.NoError(t, err)

	_, err = svc.Translate(ctx, v.Log.ID, false)
	require.Error(t, err)

	v, err = svc.Get(v.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QCDraft, v.Log.Status)
	assert.Empty(t, v.Pages)
}

func TestExportBeforeFinalizeLeavesStatus(t *testing.T) {
	svc, rec := newTestService(t, &fakeGen{generate: translator})
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateRequest{Pages: []string{"Hello"}})
	require.NoError(t, err)
	_, err = svc.Translate(ctx, v.Log.ID, false)
	require.NoError(t, err)

	v, err = svc.MarkExported(ctx, v.Log.ID, "pdf", "Guest User")
	require.NoError(t, err)
	assert.Equal(t, models.QCPending, v.Log.Status)
	assert.Equal(t, []string{audit.ActionTranslationExported}, rec.actions)
}

func TestUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, &fakeGen{generate: translator})
	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.Translate(context.Background(), "nope", false)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

package monitoring

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
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
	generate func(req llm.Request) (string, error)
	requests []llm.Request
}

func (f *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.generate(req)
}

func (f *fakeGen) Search(context.Context, string) (*llm.SearchResult, error) {
	return nil, errors.New("not supported")
}

type fakeRecorder struct {
	actions []string
	details []string
}

func (f *fakeRecorder) Record(_ context.Context, action, _ string, _ models.AppModule, details string) models.AuditEntry {
	f.actions = append(f.actions, action)
	f.details = append(f.details, details)
	return models.AuditEntry{Action: action}
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, gen *fakeGen) (*Service, *fakeRecorder) {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "monitoring.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	rec := &fakeRecorder{}
	svc := NewService(gen, local, nil, rec, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, rec
}

func reportGen(req llm.Request) (string, error) {
	if req.JSON {
		return `{"contentHtml":"` + "```html<h2>Findings</h2>```" + `","audit":{"explainability":"e","traceability":"t","modelAccuracy":97.5}}`, nil
	}
	return "```html\n<p>Dear Investigator</p>\n```", nil
}

func TestSynthesize(t *testing.T) {
	gen := &fakeGen{generate: reportGen}
	svc, rec := newTestService(t, gen)
	ctx := context.Background()

	r, err := svc.Synthesize(ctx, Request{Notes: "ICF v2 missing for subject 003", VisitDate: "2025-06-10"}, "Admin User")
	require.NoError(t, err)

	assert.Equal(t, "MR-1749988800000", r.ID)
	assert.Equal(t, "AIDE-CLIN-2025", r.ProjectNumber)
	assert.Equal(t, "Sponsor X", r.Sponsor)
	assert.Equal(t, "01", r.VisitNumber)
	assert.Equal(t, "SMV", r.VisitType)
	assert.Equal(t, "<h2>Findings</h2>", r.ContentHTML)
	assert.Equal(t, "ICF v2 missing for subject 003", r.RawNotes)
	assert.Equal(t, 97.5, r.Audit.ModelAccuracy)
	assert.Equal(t, testNow.UnixMilli(), r.Audit.Timestamp)

	assert.Equal(t, []string{audit.ActionReportGenerated}, rec.actions)
	assert.Equal(t, "Synthesized report for AIDE-CLIN-2025", rec.details[0])

	prompt := gen.requests[0].Prompt
	assert.Contains(t, prompt, "Site Monitoring Visit")
	assert.Contains(t, prompt, "Standard Structure: Standard GxP Template v4.2")
	assert.NotContains(t, prompt, "Meeting minutes")

	history := svc.History(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, r, history[0])
}

func TestSynthesizeValidation(t *testing.T) {
	svc, rec := newTestService(t, &fakeGen{generate: reportGen})
	ctx := context.Background()

	_, err := svc.Synthesize(ctx, Request{Notes: "  ", Transcript: ""}, "u")
	assert.ErrorIs(t, err, ErrIncompleteInput)

	_, err = svc.Synthesize(ctx, Request{Notes: "x", VisitType: "IMV"}, "u")
	assert.ErrorIs(t, err, ErrInvalidVisitType)

	// a transcript alone is enough
	r, err := svc.Synthesize(ctx, Request{Transcript: "[Transcript a.mp3]:\nhello", VisitType: VisitSCV}, "u")
	require.NoError(t, err)
	assert.Equal(t, "SCV", r.VisitType)
	assert.Len(t, rec.actions, 1)
}

func TestSynthesizeFailure(t *testing.T) {
	gen := &fakeGen{generate: func(llm.Request) (string, error) { return "not json", nil }}
	svc, rec := newTestService(t, gen)

	_, err := svc.Synthesize(context.Background(), Request{Notes: "n"}, "u")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.Empty(t, rec.actions)
	assert.Empty(t, svc.History(context.Background()))
}

func TestLetters(t *testing.T) {
	svc, rec := newTestService(t, &fakeGen{generate: reportGen})
	ctx := context.Background()

	r, err := svc.Synthesize(ctx, Request{Notes: "n"}, "u")
	require.NoError(t, err)

	r, err = svc.FollowUp(ctx, r.ID, "u")
	require.NoError(t, err)
	assert.Equal(t, "<p>Dear Investigator</p>", r.FollowUpHTML)

	_, err = svc.Confirmation(ctx, r.ID, "", "u")
	assert.ErrorIs(t, err, ErrNextVisitRequired)

	r, err = svc.Confirmation(ctx, r.ID, "2025-07-01", "u")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ConfirmationHTML)

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.FollowUpHTML, stored.FollowUpHTML)
	assert.Equal(t, r.ConfirmationHTML, stored.ConfirmationHTML)
	assert.Equal(t, []string{audit.ActionReportGenerated, audit.ActionLetterGenerated, audit.ActionLetterGenerated}, rec.actions)

	_, err = svc.FollowUp(ctx, "MR-0", "u")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestTranscribe(t *testing.T) {
	gen := &fakeGen{generate: func(req llm.Request) (string, error) { return " site visit audio \n", nil }}
	svc, _ := newTestService(t, gen)

	text, err := svc.Transcribe(context.Background(), "audio/webm", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "site visit audio", text)
	require.Len(t, gen.requests[0].Blobs, 1)
	assert.Equal(t, "audio/webm", gen.requests[0].Blobs[0].MIMEType)

	_, err = svc.Transcribe(context.Background(), "audio/webm", nil)
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestAppendTranscript(t *testing.T) {
	got := AppendTranscript("", "a.mp3", "one")
	assert.Equal(t, "[Transcript a.mp3]:\none", got)
	got = AppendTranscript(got, "b.mp3", "two")
	assert.True(t, strings.HasSuffix(got, "\n\n[Transcript b.mp3]:\ntwo"))
}

func TestLoadTemplate(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>1. Site Staff</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tpl, err := LoadTemplate("sop.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Uploaded: sop.docx", tpl.Reference)
	assert.Equal(t, "1. Site Staff", tpl.Text)

	_, err = LoadTemplate("bad.docx", []byte("nope"))
	assert.Error(t, err)
}

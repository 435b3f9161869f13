package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"reggenie/internal/chat"
	"reggenie/internal/dose"
	"reggenie/internal/icf"
	"reggenie/internal/ingest"
	"reggenie/internal/intel"
	"reggenie/internal/llm"
	"reggenie/internal/localstore"
	"reggenie/internal/models"
	"reggenie/internal/monitoring"
	"reggenie/internal/requirements"
	"reggenie/internal/store"
	"reggenie/internal/translation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGen struct {
	text string
	err  error
}

func (f *fakeGen) Generate(context.Context, llm.Request) (string, error) {
	return f.text, f.err
}

func (f *fakeGen) Search(context.Context, string) (*llm.SearchResult, error) {
	return nil, errors.New("not supported")
}

type fakeStreamer struct {
	chunks []string
	err    error
}

func (f *fakeStreamer) StreamChat(_ context.Context, _ string, _ []llm.Turn, _ string, onChunk func(string)) error {
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.err
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, models.AppModule, string) models.AuditEntry {
	return models.AuditEntry{}
}

func openLocal(t *testing.T) *localstore.Store {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "handler.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return local
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("regulation x: %w", store.ErrNotFound), http.StatusNotFound},
		{chat.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: cannot translate", translation.ErrInvalidTransition), http.StatusConflict},
		{chat.ErrSessionBusy, http.StatusConflict},
		{&dose.ValidationError{Fields: map[string]string{"age": "x"}}, http.StatusBadRequest},
		{monitoring.ErrIncompleteInput, http.StatusBadRequest},
		{fmt.Errorf("AI analysis failed: %w", llm.ErrMalformedResponse), http.StatusBadGateway},
		{llm.ErrEmptyResponse, http.StatusBadGateway},
		{fmt.Errorf("x: %w", llm.ErrUnavailable), http.StatusServiceUnavailable},
		{translation.ErrEmptyDocument, http.StatusBadRequest},
		{fmt.Errorf("%w: target \"Klingon\"", translation.ErrUnsupportedLanguage), http.StatusBadRequest},
		{requirements.ErrPromptRequired, http.StatusBadRequest},
		{fmt.Errorf("%w: query", intel.ErrInputRequired), http.StatusBadRequest},
		{icf.ErrTargetRequired, http.StatusBadRequest},
		{monitoring.ErrEmptyAudio, http.StatusBadRequest},
		{fmt.Errorf("%w: data url", ingest.ErrMalformedUpload), http.StatusBadRequest},
		{ingest.ErrNoExtractor, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func newChatRouter(t *testing.T, streamer *fakeStreamer) (*gin.Engine, *chat.Service) {
	t.Helper()
	svc := chat.NewService(streamer, nil, nil, zap.NewNop())
	h := NewChatHandler(svc, chat.NewFeedback(openLocal(t), svc, zap.NewNop()), zap.NewNop())

	r := gin.New()
	r.POST("/chat/sessions", h.CreateSession)
	r.GET("/chat/sessions/:id", h.GetSession)
	r.POST("/chat/sessions/:id/messages", h.SendMessage)
	r.POST("/chat/feedback", h.SubmitFeedback)
	return r, svc
}

func TestSendMessageStreams(t *testing.T) {
	r, svc := newChatRouter(t, &fakeStreamer{chunks: []string{"Hello", " world"}})
	sess := svc.NewSession()

	w := doJSON(r, http.MethodPost, "/chat/sessions/"+sess.ID+"/messages", `{"text":"What is ICH E6?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event:chunk\ndata:Hello\n\n")
	assert.Contains(t, body, "event:chunk\ndata: world\n\n")
	assert.Contains(t, body, "event:done\n")
	assert.Contains(t, body, `"text":"Hello world"`)

	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestSendMessageErrors(t *testing.T) {
	r, svc := newChatRouter(t, &fakeStreamer{err: errors.New("quota")})

	w := doJSON(r, http.MethodPost, "/chat/sessions/missing/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	sess := svc.NewSession()
	w = doJSON(r, http.MethodPost, "/chat/sessions/"+sess.ID+"/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the stream fails before any chunk: the error text is still delivered
	w = doJSON(r, http.MethodPost, "/chat/sessions/"+sess.ID+"/messages", `{"text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event:error\n")
	assert.Contains(t, w.Body.String(), "Please check your API key configuration.")
}

func TestSubmitFeedbackValidation(t *testing.T) {
	r, _ := newChatRouter(t, &fakeStreamer{})

	w := doJSON(r, http.MethodPost, "/chat/feedback", `{"rating":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/chat/feedback", `{"rating":5,"comment":"great"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Label string `json:"label"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Exceptional", resp.Label)
}

func TestAddSubjectValidation(t *testing.T) {
	svc := dose.NewService(&fakeGen{}, openLocal(t), nopRecorder{}, zap.NewNop())
	h := NewDoseHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/dose/studies/:id/subjects", h.AddSubject)
	r.POST("/dose/studies/:id/analyze", h.Analyze)

	w := doJSON(r, http.MethodPost, "/dose/studies/PH1-2025-AIDE/subjects", `{"id":"S-1","age":12,"weight":70}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Age must be 18-99", resp.Fields["age"])

	w = doJSON(r, http.MethodPost, "/dose/studies/unknown/subjects", `{"id":"S-1","age":40,"weight":70}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/dose/studies/PH1-2025-AIDE/analyze", ``)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslationExport(t *testing.T) {
	gen := &fakeGen{text: "English"}
	svc := translation.NewService(gen, openLocal(t), nopRecorder{}, zap.NewNop())
	h := NewTranslationHandler(svc, ingest.New(nil, zap.NewNop()), zap.NewNop())
	r := gin.New()
	r.POST("/jobs", h.Create)
	r.POST("/jobs/:id/translate", h.Translate)
	r.GET("/jobs/:id/export", h.Export)

	w := doJSON(r, http.MethodPost, "/jobs", `{"pages":["Hello world"],"projectNumber":"AZ-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var view translation.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	id := view.Log.ID

	w = doJSON(r, http.MethodGet, "/jobs/"+id+"/export?format=doc", ``)
	assert.Equal(t, http.StatusConflict, w.Code)

	gen.text = "Hola mundo"
	w = doJSON(r, http.MethodPost, "/jobs/"+id+"/translate", ``)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/jobs/"+id+"/export?format=doc", ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Translation_AZ-1_Spanish.doc"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Hola mundo")

	w = doJSON(r, http.MethodGet, "/jobs/"+id+"/export?format=zip", ``)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/jobs/missing/export", ``)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTranslationJobRejectsBadInput(t *testing.T) {
	svc := translation.NewService(&fakeGen{text: "English"}, openLocal(t), nopRecorder{}, zap.NewNop())
	h := NewTranslationHandler(svc, ingest.New(nil, zap.NewNop()), zap.NewNop())
	r := gin.New()
	r.POST("/jobs", h.Create)

	w := doJSON(r, http.MethodPost, "/jobs", `{"pages":["   "]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"document has no text"}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/jobs", `{"pages":["Hello"],"targetLanguage":"Klingon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported language")
}

func TestInternalErrorsHideDetails(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		fail(c, zap.NewNop(), errors.New("pq: password authentication failed"), "Failed to load")
	})
	w := doJSON(r, http.MethodGet, "/x", ``)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load"}`, w.Body.String())
}

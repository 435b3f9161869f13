package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/auth"
	"reggenie/internal/chat"
	"reggenie/internal/crypto"
	"reggenie/internal/dose"
	"reggenie/internal/handler"
	"reggenie/internal/icf"
	"reggenie/internal/ingest"
	"reggenie/internal/intel"
	"reggenie/internal/llm"
	"reggenie/internal/localstore"
	"reggenie/internal/metrics"
	"reggenie/internal/monitoring"
	"reggenie/internal/regulation"
	"reggenie/internal/requirements"
	"reggenie/internal/settings"
	"reggenie/internal/translation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGen struct{}

func (fakeGen) Generate(context.Context, llm.Request) (string, error) { return "", errors.New("offline") }

func (fakeGen) Search(context.Context, string) (*llm.SearchResult, error) {
	return nil, errors.New("offline")
}

func (fakeGen) StreamChat(context.Context, string, []llm.Turn, string, func(string)) error {
	return errors.New("offline")
}

func newTestServer(t *testing.T, opts ...Options) (*Server, *auth.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	local, err := localstore.Open(filepath.Join(t.TempDir(), "server.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	authSvc, err := auth.NewService(local, "test-secret", time.Hour, logger)
	require.NoError(t, err)

	gen := fakeGen{}
	rec := audit.NewService(local, nil, logger)
	regs := regulation.NewService(local, nil, rec, logger)
	km, err := crypto.NewKeyManager("", local)
	require.NoError(t, err)
	settingsSvc := settings.NewService(settings.NewStore(local, km, logger), "", false, rec, logger)
	chatSvc := chat.NewService(gen, nil, settingsSvc.OpenAIKey, logger)

	h := Handlers{
		Auth:        handler.NewAuthHandler(authSvc, logger),
		Regulations: handler.NewRegulationHandler(regs, intel.NewService(gen, local, regs, logger), logger),
		Chat:        handler.NewChatHandler(chatSvc, chat.NewFeedback(local, chatSvc, logger), logger),
		Translation: handler.NewTranslationHandler(translation.NewService(gen, local, rec, logger), ingest.New(nil, logger), logger),
		Monitoring:  handler.NewMonitoringHandler(monitoring.NewService(gen, local, nil, rec, logger), logger),
		Dose:        handler.NewDoseHandler(dose.NewService(gen, local, rec, logger), logger),
		ICF:         handler.NewICFHandler(icf.NewService(gen, local, rec, logger), logger),
		Records:     handler.NewRecordsHandler(rec, requirements.NewService(local, nil, logger), logger),
		Settings:    handler.NewSettingsHandler(settingsSvc, logger),
	}
	health := func() gin.H { return gin.H{"database": settings.StatusLocal} }
	o := Options{Port: "0"}
	if len(opts) > 0 {
		o = opts[0]
	}
	return NewServer(h, authSvc, health, o, logger), authSvc
}

func call(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := call(s, http.MethodGet, "/api/v1/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"Local Mode"}`, w.Body.String())
}

func TestRoutesRequireToken(t *testing.T) {
	s, authSvc := newTestServer(t)

	w := call(s, http.MethodGet, "/api/v1/regulations", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	guest, err := authSvc.Guest()
	require.NoError(t, err)

	w = call(s, http.MethodGet, "/api/v1/regulations", guest.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"regulations"`)

	w = call(s, http.MethodGet, "/api/v1/requirements", guest.Token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s, authSvc := newTestServer(t)

	guest, err := authSvc.Guest()
	require.NoError(t, err)
	w := call(s, http.MethodGet, "/api/v1/settings", guest.Token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = call(s, http.MethodPut, "/api/v1/regulations/reg-1/risk", guest.Token, `{"riskLevel":"High"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(s, http.MethodPost, "/api/v1/auth/admin/login", "", `{"code":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	admin, err := authSvc.Login("admin")
	require.NoError(t, err)

	w = call(s, http.MethodGet, "/api/v1/settings", admin.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"Local Mode"`)

	w = call(s, http.MethodPut, "/api/v1/settings", admin.Token, `{"openaiApiKey":"sk-test-abcd1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"openaiKeyHint":"****1234"`)

	w = call(s, http.MethodGet, "/api/v1/chat/providers", admin.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":["gemini"]}`, w.Body.String())
}

func TestAIFailureStatus(t *testing.T) {
	s, authSvc := newTestServer(t)
	guest, err := authSvc.Guest()
	require.NoError(t, err)

	// risk analysis degrades to the fallback assessment
	w := call(s, http.MethodPost, "/api/v1/regulations/15/analyze", guest.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"riskLevel":"Unknown"`)

	w = call(s, http.MethodPost, "/api/v1/monitoring/reports", guest.Token, `{"notes":"Site visit notes"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = call(s, http.MethodPost, "/api/v1/monitoring/reports", guest.Token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(s, http.MethodGet, "/api/v1/tmf?country=Japan", guest.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"country":"Japan","documents":[]}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Options{Port: "0", Metrics: metrics.NewCollector("reggenie")})

	w := call(s, http.MethodGet, "/api/v1/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `reggenie_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	w := call(s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

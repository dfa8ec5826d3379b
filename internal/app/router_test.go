package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/observability"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
	"github.com/pumpline-erp/pumpline/jobs"
)

func newTestRouter(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	sessions := shared.NewSessionManager(client, "pumpline_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	engine, err := view.NewEngine()
	require.NoError(t, err)
	responder := view.NewResponder(engine, csrf, sessions, logger)
	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test"},
		SessionManager: sessions,
		CSRFManager:    csrf,
		RBACMiddleware: rbac.Middleware{Service: rbac.NewService(), Sessions: sessions, Logger: logger},

		PermissionsHandler: rbac.NewPermissionsHandler(rbac.NewService(), responder),
		JobHandler:         jobs.NewHandler(nil, logger),
		Metrics:            metrics,
	})
	return router, metrics
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAnonymousVisitorsAreSentToLogin(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/access/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Set-Cookie"), "pumpline_session="))
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/auth/logout")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStaticAssetsAreCached(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/static/css/app.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestMetricsEndpointRecordsRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	do(router, http.MethodGet, "/jobs/health")

	rec := do(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pumpline_http_requests_total{code="200",route="/jobs/health"} 1`)
}

package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
	_ "github.com/pumpline-erp/pumpline/testing"
)

type stubDashboards struct {
	summary Summary
	err     error
}

func (s stubDashboards) Dashboard(ctx context.Context, p shared.Principal) (Dashboard, error) {
	if s.err != nil {
		return Dashboard{}, s.err
	}
	return Build(p, s.summary), nil
}

func serve(t *testing.T, p shared.Principal, service dashboardService) *httptest.ResponseRecorder {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	responder := view.NewResponder(engine, shared.NewCSRFManager("csrf"), sessions, nil)
	h := NewHandler(nil, service, responder)

	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(p)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestSupervisorSeesCloseShift(t *testing.T) {
	p := shared.Principal{UserID: 5, Name: "Wanjiru", Role: shared.RoleSupervisor, CompanyID: 1, StationID: 10, Token: "tok"}
	rec := serve(t, p, stubDashboards{summary: sampleSummary()})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome, Wanjiru")
	assert.Contains(t, body, `href="/shifts/31/close"`)
	assert.NotContains(t, body, "Top stations today")
}

func TestSuperAdminSeesCompanies(t *testing.T) {
	p := shared.Principal{UserID: 1, Name: "Root", Role: shared.RoleSuperAdmin, Token: "tok"}
	rec := serve(t, p, stubDashboards{summary: sampleSummary()})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/companies"`)
	assert.Contains(t, body, "Top stations today")
	assert.NotContains(t, body, "Current shift")
}

func TestSummaryFailureStillRendersPage(t *testing.T) {
	p := shared.Principal{UserID: 3, Name: "Brian", Role: shared.RoleStationManager, CompanyID: 1, StationID: 10, Token: "tok"}
	rec := serve(t, p, stubDashboards{err: errors.New("dial tcp: connection refused")})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dashboard figures are unavailable")
}

package shifts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
	_ "github.com/pumpline-erp/pumpline/testing"
)

type harness struct {
	router  chi.Router
	sess    *shared.Session
	gateway *stubGateway
	handler *Handler
}

type stubDrafts map[string][]int64

func (d stubDrafts) InProgress(ctx context.Context, sessionID string) ([]int64, error) {
	return d[sessionID], nil
}

func newHarness(t *testing.T, role shared.Role, stationID int64) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	responder := view.NewResponder(engine, shared.NewCSRFManager("csrf"), sessions, nil)

	gw := sampleGateway()
	h := NewHandler(nil, NewService(gw), responder, rbac.Middleware{Service: rbac.NewService()})

	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(shared.Principal{UserID: 3, Name: "Njeri", Role: role, StationID: stationID, Token: "tok"})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/shifts", h.MountRoutes)
	return &harness{router: r, sess: sess, gateway: gw, handler: h}
}

func (hs *harness) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	hs.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (hs *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	hs.router.ServeHTTP(rec, req)
	return rec
}

func TestListShowsOwnStationOnly(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager, 2)

	rec := hs.get("/shifts/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/shifts/1"`)
	assert.Contains(t, body, `href="/shifts/2"`)
	assert.NotContains(t, body, `href="/shifts/3"`)
	assert.Contains(t, body, `href="/shifts/open"`)
}

func TestSupervisorCannotOpenShift(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor, 2)

	rec := hs.get("/shifts/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `href="/shifts/open"`)

	rec = hs.get("/shifts/open")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDetailOffersClosingForClosableShift(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor, 2)

	rec := hs.get("/shifts/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/shifts/2/close"`)

	rec = hs.get("/shifts/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `href="/shifts/1/close"`)
}

func TestUnfinishedClosingIsMarked(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor, 2)
	hs.handler.WithClosingDrafts(stubDrafts{hs.sess.ID: {2}, "other-session": {1}})

	rec := hs.get("/shifts/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resume closing")

	rec = hs.get("/shifts/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "closing in progress"))
	assert.Contains(t, body, `<a class="muted" href="/shifts/2/close">closing in progress</a>`)
}

func TestDetailHidesClosingFromCompanyAdmin(t *testing.T) {
	hs := newHarness(t, shared.RoleCompanyAdmin, 0)

	rec := hs.get("/shifts/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `href="/shifts/2/close"`)
}

func TestOpenFormListsIslandsAndStaff(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager, 9)

	rec := hs.get("/shifts/open")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Island A")
	assert.Contains(t, body, `name="attendant_8"`)
	assert.Contains(t, body, "Wanjiru")
}

func TestOpenSubmitRedirectsToShift(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager, 9)

	rec := hs.post("/shifts/open", url.Values{
		"supervisor_id": {"20"},
		"start_time":    {"2026-05-04T06:00"},
		"attendant_7":   {"30"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/44", rec.Header().Get("Location"))
	require.Len(t, hs.gateway.opened, 1)
	assert.Equal(t, []IslandAssignment{{IslandID: 7, IslandName: "Island A", AttendantID: 30}}, hs.gateway.opened[0].Islands)
	flash := hs.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
}

func TestOpenErrorsRenderInline(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager, 9)

	rec := hs.post("/shifts/open", url.Values{"start_time": {"2026-05-04T06:00"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Choose a supervisor")
	assert.Contains(t, body, "Assign an attendant to at least one island")
	assert.Zero(t, hs.gateway.openCalled)
}

func TestOpenRejectsSecondShiftAtStation(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager, 2)

	rec := hs.post("/shifts/open", url.Values{
		"supervisor_id": {"20"},
		"start_time":    {"2026-05-04T06:00"},
		"attendant_7":   {"30"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already has a shift in progress")
}

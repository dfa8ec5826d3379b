package shiftclosehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/shiftclose"
	"github.com/pumpline-erp/pumpline/internal/shifts"
	"github.com/pumpline-erp/pumpline/internal/view"
	"github.com/pumpline-erp/pumpline/internal/wizard"
	_ "github.com/pumpline-erp/pumpline/testing"
)

type fakeGateway struct {
	mu       sync.Mutex
	closed   []shiftclose.ClosePayload
	closeErr error
}

func (g *fakeGateway) GetShift(ctx context.Context, id int64) (shifts.Shift, error) {
	return shifts.Shift{ID: id, StationID: 1, StationName: "Kilimani", Status: shifts.StatusActive}, nil
}

func (g *fakeGateway) ClosingContext(ctx context.Context, id int64) (shiftclose.ClosingContext, error) {
	return shiftclose.ClosingContext{
		Pumps: []shiftclose.Pump{{ID: 1, Name: "P1", IslandID: 10, TankID: 100, Product: "PMS", UnitPrice: decimal.NewFromInt(150), StartElectric: decimal.NewFromInt(12000)}},
		Tanks: []shiftclose.Tank{{ID: 100, Name: "T1", Product: "PMS", StartDip: decimal.NewFromInt(150), StartVolume: decimal.NewFromInt(20000)}},
		Islands: []shiftclose.Island{{ID: 10, Name: "Island A", AttendantName: "Wanjiru"}},
	}, nil
}

func (g *fakeGateway) PreClosingCheck(ctx context.Context, id int64) (shiftclose.PreClosingCheck, error) {
	return shiftclose.PreClosingCheck{CanClose: true}, nil
}

func (g *fakeGateway) CloseShift(ctx context.Context, id int64, p shiftclose.ClosePayload, key string) (shiftclose.CloseResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closeErr != nil {
		return shiftclose.CloseResult{}, g.closeErr
	}
	g.closed = append(g.closed, p)
	return shiftclose.CloseResult{ShiftID: id, Status: shifts.StatusClosed}, nil
}

type harness struct {
	router  chi.Router
	sess    *shared.Session
	gateway *fakeGateway
	service *shiftclose.Service
	redis   *miniredis.Miniredis
}

func newHarness(t *testing.T, role shared.Role) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	store := wizard.NewStore(client, time.Hour)
	sessions.OnDestroy(store.ClearSession)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	responder := view.NewResponder(engine, shared.NewCSRFManager("csrf"), sessions, nil)

	gw := &fakeGateway{}
	svc := shiftclose.NewService(gw, store, nil, shiftclose.Config{FuelTolerance: decimal.NewFromInt(5)})
	h := NewHandler(nil, svc, responder, rbac.Middleware{Service: rbac.NewService()}, nil)

	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(shared.Principal{UserID: 3, Name: "Otieno", Role: role, StationID: 1, Token: "tok"})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
			require.NoError(t, sessions.Commit(req.Context(), httptest.NewRecorder(), req, sess))
		})
	})
	r.Route("/shifts/{id:[0-9]+}/close", h.MountRoutes)
	return &harness{router: r, sess: sess, gateway: gw, service: svc, redis: mr}
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

func TestStartRedirectsToFirstStep(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)

	rec := hs.get("/shifts/7/close/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/7/close/validation", rec.Header().Get("Location"))

	rec = hs.get("/shifts/7/close/validation")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The shift can be closed.")
}

func TestRoleWithoutClosePermissionIsForbidden(t *testing.T) {
	hs := newHarness(t, shared.RoleCompanyAdmin)
	rec := hs.get("/shifts/7/close/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestForwardJumpRedirectsToCurrentStep(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.get("/shifts/7/close/")

	rec := hs.get("/shifts/7/close/summary")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/7/close/validation", rec.Header().Get("Location"))
}

func TestGuardMessageRendersInline(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.get("/shifts/7/close/")
	rec := hs.post("/shifts/7/close/validation", url.Values{"action": {"next"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = hs.post("/shifts/7/close/pumps", url.Values{"action": {"next"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a closing meter reading for at least one pump")
}

func TestInvalidNumberKeepsRawInput(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.get("/shifts/7/close/")
	hs.post("/shifts/7/close/validation", url.Values{"action": {"next"}})

	rec := hs.post("/shifts/7/close/pumps", url.Values{"action": {"next"}, "end_electric_1": {"12x50"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Enter a number")
	assert.Contains(t, body, `value="12x50"`)
}

func (hs *harness) walkToSummary(t *testing.T) {
	t.Helper()
	hs.get("/shifts/7/close/")
	steps := []struct {
		path string
		form url.Values
		next string
	}{
		{"/shifts/7/close/validation", url.Values{}, "/shifts/7/close/pumps"},
		{"/shifts/7/close/pumps", url.Values{"end_electric_1": {"12,150"}}, "/shifts/7/close/tanks"},
		{"/shifts/7/close/tanks", url.Values{"end_dip_100": {"140"}, "end_volume_100": {"19850"}}, "/shifts/7/close/collections"},
		{"/shifts/7/close/collections", url.Values{"cash_10": {"20000"}, "mobile_money_10": {"2000"}}, "/shifts/7/close/summary"},
	}
	for _, s := range steps {
		s.form.Set("action", "next")
		rec := hs.post(s.path, s.form)
		require.Equal(t, http.StatusSeeOther, rec.Code, s.path)
		require.Equal(t, s.next, rec.Header().Get("Location"), s.path)
	}
}

func TestWalkAndFinalize(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.walkToSummary(t)

	rec := hs.get("/shifts/7/close/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Finalize and close shift")

	rec = hs.get("/shifts/7/close/summary.json")
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Step    string `json:"step"`
		Summary struct {
			TotalExpected decimal.Decimal
			TotalVariance decimal.Decimal
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "summary", payload.Step)
	assert.True(t, payload.Summary.TotalExpected.Equal(decimal.NewFromInt(22500)))
	assert.True(t, payload.Summary.TotalVariance.Equal(decimal.NewFromInt(-500)))

	rec = hs.post("/shifts/7/close/finalize", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/7", rec.Header().Get("Location"))
	require.Len(t, hs.gateway.closed, 1)
	assert.True(t, hs.gateway.closed[0].Totals.Collected.Equal(decimal.NewFromInt(22000)))
	flash := hs.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)

	rec = hs.get("/shifts/7/close/summary.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelDiscardsDraft(t *testing.T) {
	hs := newHarness(t, shared.RoleStationManager)
	hs.get("/shifts/7/close/")

	rec := hs.post("/shifts/7/close/cancel", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/7", rec.Header().Get("Location"))

	rec = hs.get("/shifts/7/close/pumps")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shifts/7/close", rec.Header().Get("Location"))
}

func TestInvalidNumberKeepsSavedValue(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.get("/shifts/7/close/")
	hs.post("/shifts/7/close/validation", url.Values{"action": {"next"}})

	rec := hs.post("/shifts/7/close/pumps", url.Values{"action": {"save"}, "end_electric_1": {"12150"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = hs.post("/shifts/7/close/pumps", url.Values{"action": {"save"}, "end_electric_1": {"12x50"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="12x50"`)

	d, err := hs.service.Draft(context.Background(), hs.sess.ID, 7)
	require.NoError(t, err)
	require.Len(t, d.Pumps, 1)
	assert.True(t, d.Pumps[0].EndElectric.Equal(decimal.NewFromInt(12150)), d.Pumps[0].EndElectric.String())
}

func TestExpiredTokenOnFinalizeEndsSession(t *testing.T) {
	hs := newHarness(t, shared.RoleSupervisor)
	hs.walkToSummary(t)
	sid := hs.sess.ID
	require.True(t, hs.redis.Exists("session:"+sid))
	require.True(t, hs.redis.Exists("pumpline:wizard:"+sid))

	hs.gateway.closeErr = &backend.APIError{Method: http.MethodPost, Path: "/shift/7/close", Status: http.StatusUnauthorized}
	rec := hs.post("/shifts/7/close/finalize", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, view.LoginPath, rec.Header().Get("Location"))
	assert.Equal(t, "/auth/login", view.LoginPath)

	assert.False(t, hs.redis.Exists("session:"+sid))
	assert.False(t, hs.redis.Exists("pumpline:wizard:"+sid))
	_, ok := hs.sess.Principal()
	assert.False(t, ok)
}

package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shared"
)

func sessionFor(t *testing.T, p *shared.Principal) *shared.Session {
	t.Helper()
	sm := shared.NewSessionManager(nil, "s", "", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if p != nil {
		sess.SetPrincipal(*p)
	}
	return sess
}

func requestWith(sess *shared.Session) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	m := Middleware{Service: NewService()}
	called := false
	h := m.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, nil)))

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestRequireLoginAttachesToken(t *testing.T) {
	m := Middleware{Service: NewService()}
	var token string
	h := m.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = backend.TokenFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleSupervisor, Token: "abc"})))

	assert.Equal(t, "abc", token)
}

func TestRequireLoginExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := Middleware{Service: NewService(), Now: func() time.Time { return now }}
	h := m.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleSupervisor, ExpiresAt: now.Add(-time.Second)})))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestRequireAny(t *testing.T) {
	m := Middleware{Service: NewService()}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := m.RequireAny(shared.PermCompaniesManage)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleSupervisor})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleSuperAdmin})))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Service: NewService()}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := m.RequireAll(shared.PermShiftsView, shared.PermShiftsOpen)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleSupervisor})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionFor(t, &shared.Principal{UserID: 1, Role: shared.RoleStationManager})))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListRolesCoversEveryRole(t *testing.T) {
	roles := NewService().ListRoles()
	assert.Len(t, roles, 4)
	for _, r := range roles {
		assert.NotEmpty(t, r.Permissions, r.Role)
	}
	assert.Len(t, NewService().ListPermissions(), len(permissionDescriptions))
}

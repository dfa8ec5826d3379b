package users

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

func newTestRouter(t *testing.T, actor shared.Principal, repo *stubRepo) (chi.Router, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	responder := view.NewResponder(engine, shared.NewCSRFManager("csrf"), sessions, nil)
	h := NewHandler(nil, newTestService(repo), Pickers{}, responder, rbac.Middleware{Service: rbac.NewService()})

	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	actor.Token = "tok"
	sess.SetPrincipal(actor)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/users", h.MountRoutes)
	return r, sess
}

func post(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestManagerSeesOwnStationOnly(t *testing.T) {
	r, _ := newTestRouter(t, manager, sampleRepo())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Cheruto")
	assert.NotContains(t, body, "Daudi")
	assert.NotContains(t, body, "New user")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/new", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateUserFormRoles(t *testing.T) {
	r, _ := newTestRouter(t, companyAdmin, sampleRepo())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="station_manager"`)
	assert.NotContains(t, body, `value="super_admin"`)
}

func TestCreateUserErrorsDropPassword(t *testing.T) {
	repo := sampleRepo()
	r, _ := newTestRouter(t, companyAdmin, repo)

	rec := post(r, "/users/", url.Values{"name": {"Faith"}, "email": {"faith@savannah.test"}, "role": {"supervisor"}, "password": {"secret-pass"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Required")
	assert.NotContains(t, body, "secret-pass")
	assert.Empty(t, repo.created)

	rec = post(r, "/users/", url.Values{"name": {"Faith"}, "email": {"faith@savannah.test"}, "role": {"supervisor"}, "station_id": {"11"}, "password": {"secret-pass"}, "is_active": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/90", rec.Header().Get("Location"))
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].IsActive)
}

func TestDeleteSelfIsRefused(t *testing.T) {
	repo := sampleRepo()
	r, sess := newTestRouter(t, companyAdmin, repo)

	rec := post(r, "/users/2/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/2", rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "danger", flash.Kind)
	assert.Empty(t, repo.deleted)

	rec = post(r, "/users/4/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users", rec.Header().Get("Location"))
	assert.Equal(t, []int64{4}, repo.deleted)
}

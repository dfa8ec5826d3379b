package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "pumpline_session", "secret", time.Hour, false), mr
}

func TestSessionPrincipalRoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_, ok := sess.Principal()
	assert.False(t, ok)

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	sess.SetPrincipal(Principal{
		UserID:    7,
		Name:      "Amina",
		Email:     "amina@example.com",
		Role:      RoleStationManager,
		CompanyID: 3,
		StationID: 11,
		Token:     "tok",
		ExpiresAt: expires,
	})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	p, ok := loaded.Principal()
	require.True(t, ok)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, RoleStationManager, p.Role)
	assert.Equal(t, int64(3), p.CompanyID)
	assert.Equal(t, int64(11), p.StationID)
	assert.Equal(t, "tok", p.Token)
	assert.True(t, p.ExpiresAt.Equal(expires))
	assert.False(t, p.Expired(expires.Add(-time.Minute)))
	assert.True(t, p.Expired(expires))
}

func TestSessionDestroyClearsRedis(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	assert.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	assert.False(t, mr.Exists("session:"+sess.ID))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestSessionRenewChangesID(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	oldID := sess.ID

	sess.isNew = false
	require.NoError(t, sm.Renew(ctx, sess))
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.Equal(t, "v", sess.Get("k"))
}

func TestFlashQueue(t *testing.T) {
	sess := newSession()
	assert.Nil(t, sess.PopFlash())
	sess.AddFlash(FlashMessage{Kind: "success", Message: "one"})
	sess.AddFlash(FlashMessage{Kind: "danger", Message: "two"})
	assert.Equal(t, "one", sess.PopFlash().Message)
	assert.Equal(t, "two", sess.PopFlash().Message)
	assert.Nil(t, sess.PopFlash())
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := newSession()
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, "nope"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
}

func TestSessionOnDestroyHook(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()
	var got string
	sm.OnDestroy(func(_ context.Context, id string) error {
		got = id
		return nil
	})
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sm.Destroy(sess)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	assert.Equal(t, sess.ID, got)
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("9")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "pumpline_session", Value: sess.ID + ".forged"})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, loaded.ID)
	assert.Empty(t, loaded.User())
}

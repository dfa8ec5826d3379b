package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session value keys holding the signed-in principal.
const (
	sessionKeyToken     = "api_token"
	sessionKeyName      = "user_name"
	sessionKeyEmail     = "user_email"
	sessionKeyRole      = "role"
	sessionKeyCompanyID = "company_id"
	sessionKeyStationID = "station_id"
	sessionKeyExpiresAt = "token_expires_at"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Principal is the signed-in console user as reported by the backend.
type Principal struct {
	UserID    int64
	Name      string
	Email     string
	Role      Role
	CompanyID int64
	StationID int64
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the backend token has passed its expiry.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	onDestroy  []func(ctx context.Context, sessionID string) error
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}

	id, ok := sm.verify(cookie.Value)
	if !ok {
		return newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown or expired ids are never reused; a fresh id prevents fixation.
			return newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := newSession()
	sess.ID = id
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		for _, fn := range sm.onDestroy {
			if err := fn(ctx, sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
	sess.values = make(map[string]string)
	sess.userID = ""
}

// OnDestroy registers fn to run when a destroyed session is committed, so
// state keyed by the session id (wizard drafts) goes with it.
func (sm *SessionManager) OnDestroy(fn func(ctx context.Context, sessionID string) error) {
	sm.onDestroy = append(sm.onDestroy, fn)
}

// Renew moves the session to a fresh id, keeping its values. Called on login.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if !sess.isNew {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	sess.ID = uuid.NewString()
	sess.isNew = true
	sess.dirty = true
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// SetPrincipal stores the signed-in user and backend token.
func (s *Session) SetPrincipal(p Principal) {
	s.SetUser(strconv.FormatInt(p.UserID, 10))
	s.Set(sessionKeyToken, p.Token)
	s.Set(sessionKeyName, p.Name)
	s.Set(sessionKeyEmail, p.Email)
	s.Set(sessionKeyRole, string(p.Role))
	s.Set(sessionKeyCompanyID, strconv.FormatInt(p.CompanyID, 10))
	s.Set(sessionKeyStationID, strconv.FormatInt(p.StationID, 10))
	if p.ExpiresAt.IsZero() {
		s.Delete(sessionKeyExpiresAt)
	} else {
		s.Set(sessionKeyExpiresAt, strconv.FormatInt(p.ExpiresAt.Unix(), 10))
	}
}

// Principal returns the signed-in user, or false for anonymous sessions.
func (s *Session) Principal() (Principal, bool) {
	if s == nil || s.userID == "" {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(s.userID, 10, 64)
	if err != nil {
		return Principal{}, false
	}
	p := Principal{
		UserID:    id,
		Name:      s.Get(sessionKeyName),
		Email:     s.Get(sessionKeyEmail),
		Role:      Role(s.Get(sessionKeyRole)),
		CompanyID: parseID(s.Get(sessionKeyCompanyID)),
		StationID: parseID(s.Get(sessionKeyStationID)),
		Token:     s.Get(sessionKeyToken),
	}
	if raw := s.Get(sessionKeyExpiresAt); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			p.ExpiresAt = time.Unix(unix, 0).UTC()
		}
	}
	return p, true
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

// sign binds the session id to the secret so forged cookies never reach Redis.
func (sm *SessionManager) sign(id string) string {
	if len(sm.secret) == 0 {
		return id
	}
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	if len(sm.secret) == 0 {
		return value, value != ""
	}
	id, _, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sm.sign(id)), []byte(value))
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

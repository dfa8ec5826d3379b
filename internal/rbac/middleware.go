package rbac

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service  *Service
	Sessions *shared.SessionManager
	Logger   *slog.Logger
	Now      func() time.Time
}

// RequireLogin sends anonymous visitors to the login page. An expired
// backend token ends the session the same way a 401 does. For signed-in
// users the token is attached to the request context for backend calls.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		p, ok := sess.Principal()
		if !ok {
			http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
			return
		}
		if p.Expired(m.now()) {
			if m.Logger != nil {
				m.Logger.Info("session token expired", slog.Int64("user_id", p.UserID))
			}
			if m.Sessions != nil {
				m.Sessions.Destroy(sess)
			}
			http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
			return
		}
		ctx := backend.WithToken(r.Context(), p.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if hasAnyPermission(m.Service.EffectivePermissions(p), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, r, p)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if hasAllPermissions(m.Service.EffectivePermissions(p), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, r, p)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, p shared.Principal) {
	if m.Logger != nil {
		m.Logger.Warn("rbac denied", slog.Int64("user_id", p.UserID), slog.String("role", string(p.Role)), slog.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

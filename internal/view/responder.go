package view

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shared"
)

// LoginPath is where anonymous or expired sessions are sent.
const LoginPath = "/auth/login"

// Responder bundles the page rendering and flash redirect helpers used by
// every console handler.
type Responder struct {
	engine   *Engine
	csrf     *shared.CSRFManager
	sessions *shared.SessionManager
	logger   *slog.Logger
}

// NewResponder constructs a Responder.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{engine: engine, csrf: csrf, sessions: sessions, logger: logger}
}

// Render writes template name with status 200.
func (rs *Responder) Render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	rs.RenderStatus(w, r, http.StatusOK, name, title, data)
}

// RenderStatus writes template name with the session's CSRF token, pending
// flash and principal filled in.
func (rs *Responder) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var (
		csrfToken string
		flash     *shared.FlashMessage
		user      *shared.Principal
	)
	if sess != nil {
		csrfToken, _ = rs.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
		if p, ok := sess.Principal(); ok {
			user = &p
		}
	}
	td := TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		User:        user,
		Data:        data,
	}
	if err := rs.engine.RenderStatus(w, status, name, td); err != nil {
		rs.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Redirect stores a flash message and redirects with 303.
func (rs *Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Fail reports a failed backend call. A rejected token ends the session and
// goes to the login page; anything else becomes a danger flash on location.
func (rs *Responder) Fail(w http.ResponseWriter, r *http.Request, err error, location string) {
	if rs.HandleUnauthorized(w, r, err) {
		return
	}
	rs.logger.Warn("backend call failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	rs.Redirect(w, r, location, "danger", backend.UserMessage(err))
}

// HandleUnauthorized destroys the session when err is a 401 and redirects to
// the login page. It reports whether it wrote a response.
func (rs *Responder) HandleUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	sess := shared.SessionFromContext(r.Context())
	rs.sessions.Destroy(sess)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	return true
}

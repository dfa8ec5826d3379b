package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

type dashboardService interface {
	Dashboard(ctx context.Context, p shared.Principal) (Dashboard, error)
}

// Handler renders the landing page.
type Handler struct {
	logger    *slog.Logger
	service   dashboardService
	responder *view.Responder
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service dashboardService, responder *view.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder}
}

// MountRoutes registers the dashboard at the root of r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

type pageData struct {
	Dashboard
	Error string
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	d, err := h.service.Dashboard(r.Context(), p)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		// The navigation stays usable when the summary is down.
		h.logger.Error("load dashboard", slog.Any("error", err))
		h.responder.Render(w, r, "pages/dashboard.html", "Dashboard", pageData{
			Dashboard: Dashboard{Role: p.Role},
			Error:     backend.UserMessage(err),
		})
		return
	}
	h.responder.Render(w, r, "pages/dashboard.html", "Dashboard", pageData{Dashboard: d})
}

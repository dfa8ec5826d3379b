package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

// PermissionsHandler renders the access overview page.
type PermissionsHandler struct {
	service   *Service
	responder *view.Responder
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(service *Service, responder *view.Responder) *PermissionsHandler {
	return &PermissionsHandler{service: service, responder: responder}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

type accessPageData struct {
	Role        string
	Granted     []string
	Permissions []Permission
	Roles       []RoleSummary
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	h.responder.Render(w, r, "pages/access.html", "My access", accessPageData{
		Role:        p.Role.Label(),
		Granted:     h.service.EffectivePermissions(p),
		Permissions: h.service.ListPermissions(),
		Roles:       h.service.ListRoles(),
	})
}

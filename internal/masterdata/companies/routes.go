package companies

import (
	"github.com/go-chi/chi/v5"

	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermCompaniesView))
		r.Get("/", h.List)
		r.Get("/{id:[0-9]+}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(internalShared.PermCompaniesManage))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Get("/{id:[0-9]+}/edit", h.EditForm)
		r.Post("/{id:[0-9]+}/edit", h.Update)
		r.Get("/{id:[0-9]+}/delete", h.ConfirmDelete)
		r.Post("/{id:[0-9]+}/delete", h.Delete)
	})
}

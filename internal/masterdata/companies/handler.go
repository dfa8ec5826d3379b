package companies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

type companyService interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Company, internalShared.Pagination, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, form CompanyForm) (Company, error)
	Update(ctx context.Context, id int64, form CompanyForm) (Company, error)
	Delete(ctx context.Context, id int64, confirmed bool) error
}

type Handler struct {
	logger    *slog.Logger
	service   companyService
	responder *view.Responder
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service companyService, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac}
}

type listPageData struct {
	Companies []Company
	Filters   shared.ListFilters
	Statuses  []string
	Pager     view.Pager
}

type formPageData struct {
	ID       int64
	Form     CompanyForm
	Errors   shared.FieldErrors
	General  string
	Statuses []string
}

// Action is the form post target.
func (d formPageData) Action() string {
	if d.ID == 0 {
		return "/companies"
	}
	return fmt.Sprintf("/companies/%d/edit", d.ID)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	companies, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("list companies failed", slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Companies", "Failed to load companies")
		return
	}
	h.responder.Render(w, r, "pages/companies_list.html", "Companies", listPageData{
		Companies: companies,
		Filters:   filters,
		Statuses:  shared.Statuses,
		Pager:     view.NewPager(pagination, r.URL.Query()),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/company_detail.html", company.Name, company)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPageData{Form: CompanyForm{Status: shared.StatusActive}})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	created, err := h.service.Create(r.Context(), form)
	if err != nil {
		h.formFailed(w, r, 0, form, err)
		return
	}
	h.logger.Info("company created", slog.Int64("company_id", created.ID))
	h.responder.Redirect(w, r, "/companies/"+strconv.FormatInt(created.ID, 10), "success", "Company created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, formPageData{ID: company.ID, Form: formFromCompany(company)})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	if _, err := h.service.Update(r.Context(), id, form); err != nil {
		h.formFailed(w, r, id, form, err)
		return
	}
	h.responder.Redirect(w, r, "/companies/"+strconv.FormatInt(id, 10), "success", "Company updated successfully")
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/confirm_delete.html", "Delete company", shared.ConfirmDelete{
		Kind:   "company",
		Name:   company.Name,
		Action: fmt.Sprintf("/companies/%d/delete", company.ID),
		Cancel: fmt.Sprintf("/companies/%d", company.ID),
		Details: []string{
			fmt.Sprintf("%d stations belong to this company.", company.StationCount),
		},
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	err = h.service.Delete(r.Context(), id, shared.Confirmed(r.PostFormValue(shared.ConfirmField)))
	switch {
	case errors.Is(err, shared.ErrConfirmRequired):
		http.Redirect(w, r, fmt.Sprintf("/companies/%d/delete", id), http.StatusSeeOther)
	case err != nil:
		h.logger.Error("delete company failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, fmt.Sprintf("/companies/%d", id))
	default:
		h.logger.Info("company deleted", slog.Int64("company_id", id))
		h.responder.Redirect(w, r, "/companies", "success", "Company deleted successfully")
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Company, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return Company{}, false
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get company failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, "/companies")
		return Company{}, false
	}
	return company, true
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, id int64, form CompanyForm, err error) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	fields, general := shared.FormErrors(err)
	h.logger.Warn("save company failed", slog.Any("error", err), slog.Int64("id", id))
	h.renderForm(w, r, http.StatusUnprocessableEntity, formPageData{ID: id, Form: form, Errors: fields, General: general})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, data formPageData) {
	if data.Errors == nil {
		data.Errors = shared.FieldErrors{}
	}
	data.Statuses = shared.Statuses
	title := "New company"
	if data.ID > 0 {
		title = "Edit company"
	}
	h.responder.RenderStatus(w, r, status, "pages/company_form.html", title, data)
}

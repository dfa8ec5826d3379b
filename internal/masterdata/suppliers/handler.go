package suppliers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/export"
	"github.com/pumpline-erp/pumpline/internal/masterdata/companies"
	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

type supplierService interface {
	List(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Supplier, internalShared.Pagination, error)
	Get(ctx context.Context, scope shared.Scope, id int64) (Supplier, error)
	Create(ctx context.Context, scope shared.Scope, form SupplierForm) (Supplier, error)
	Update(ctx context.Context, scope shared.Scope, id int64, form SupplierForm) (Supplier, error)
	Delete(ctx context.Context, scope shared.Scope, id int64, confirmed bool) error
	Accounts(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Account, AccountTotals, error)
}

type companyOptions interface {
	Options(ctx context.Context) ([]companies.Company, error)
}

type Handler struct {
	logger    *slog.Logger
	service   supplierService
	companies companyOptions
	responder *view.Responder
	rbac      rbac.Middleware
	now       func() time.Time
}

func NewHandler(logger *slog.Logger, service supplierService, companies companyOptions, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, companies: companies, responder: responder, rbac: rbac, now: time.Now}
}

type listPageData struct {
	Suppliers   []Supplier
	Filters     shared.ListFilters
	Statuses    []string
	Companies   []companies.Company
	ShowCompany bool
	Pager       view.Pager
}

type accountsPageData struct {
	Accounts    []Account
	Totals      AccountTotals
	Filters     shared.ListFilters
	Companies   []companies.Company
	ShowCompany bool
	ExportURL   string
}

type formPageData struct {
	ID        int64
	Form      SupplierForm
	Errors    shared.FieldErrors
	General   string
	Statuses  []string
	Companies []companies.Company
}

// Action is the form post target.
func (d formPageData) Action() string {
	if d.ID == 0 {
		return "/suppliers"
	}
	return fmt.Sprintf("/suppliers/%d/edit", d.ID)
}

// PickCompany is true for users not bound to a company.
func (d formPageData) PickCompany() bool {
	return len(d.Companies) > 0
}

func scopeOf(r *http.Request) shared.Scope {
	p, _ := internalShared.PrincipalFromContext(r.Context())
	return shared.ScopeFor(p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	filters := shared.ParseListFilters(r.URL.Query())
	suppliers, pagination, err := h.service.List(r.Context(), scope, filters)
	if err != nil {
		h.loadFailed(w, r, err, "Suppliers", "list suppliers failed")
		return
	}
	data := listPageData{
		Suppliers:   suppliers,
		Filters:     shared.Scope{CompanyID: scope.CompanyID}.Apply(filters),
		Statuses:    shared.Statuses,
		ShowCompany: scope.CompanyID == 0,
		Pager:       view.NewPager(pagination, r.URL.Query()),
	}
	if data.ShowCompany {
		data.Companies = h.companyOptions(r)
	}
	h.responder.Render(w, r, "pages/suppliers_list.html", "Suppliers", data)
}

// Accounts renders the supplier debt aging table.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	filters := shared.ParseListFilters(r.URL.Query())
	accounts, totals, err := h.service.Accounts(r.Context(), scope, filters)
	if err != nil {
		h.loadFailed(w, r, err, "Supplier accounts", "list supplier accounts failed")
		return
	}
	data := accountsPageData{
		Accounts:    accounts,
		Totals:      totals,
		Filters:     shared.Scope{CompanyID: scope.CompanyID}.Apply(filters),
		ShowCompany: scope.CompanyID == 0,
		ExportURL:   exportURL(r),
	}
	if data.ShowCompany {
		data.Companies = h.companyOptions(r)
	}
	h.responder.Render(w, r, "pages/supplier_accounts.html", "Supplier accounts", data)
}

func exportURL(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return "/suppliers/accounts.xlsx"
	}
	return "/suppliers/accounts.xlsx?" + r.URL.RawQuery
}

// ExportAccounts downloads the aging table as a workbook.
func (h *Handler) ExportAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, totals, err := h.service.Accounts(r.Context(), scopeOf(r), shared.ParseListFilters(r.URL.Query()))
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("export supplier accounts failed", slog.Any("error", err))
		h.responder.Fail(w, r, err, "/suppliers/accounts")
		return
	}
	filename := fmt.Sprintf("supplier-aging-%s.xlsx", h.now().Format("2006-01-02"))
	export.Attachment(w, filename, export.ContentTypeXLSX)
	if err := export.WriteXLSX(w, AgingTable(accounts, totals)); err != nil {
		h.logger.Error("write supplier aging workbook failed", slog.Any("error", err))
	}
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/supplier_detail.html", supplier.Name, supplier)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPageData{Form: SupplierForm{Status: shared.StatusActive, PaymentTermsDays: 30}})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	created, err := h.service.Create(r.Context(), scopeOf(r), form)
	if err != nil {
		h.formFailed(w, r, 0, form, err)
		return
	}
	h.logger.Info("supplier created", slog.Int64("supplier_id", created.ID))
	h.responder.Redirect(w, r, "/suppliers/"+strconv.FormatInt(created.ID, 10), "success", "Supplier created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, formPageData{ID: supplier.ID, Form: formFromSupplier(supplier)})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid supplier ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	if _, err := h.service.Update(r.Context(), scopeOf(r), id, form); err != nil {
		h.formFailed(w, r, id, form, err)
		return
	}
	h.responder.Redirect(w, r, "/suppliers/"+strconv.FormatInt(id, 10), "success", "Supplier updated successfully")
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/confirm_delete.html", "Delete supplier", shared.ConfirmDelete{
		Kind:   "supplier",
		Name:   supplier.Name,
		Action: fmt.Sprintf("/suppliers/%d/delete", supplier.ID),
		Cancel: fmt.Sprintf("/suppliers/%d", supplier.ID),
		Details: []string{
			"Purchases and debt records that reference this supplier are kept by the backend.",
		},
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid supplier ID", http.StatusBadRequest)
		return
	}
	err = h.service.Delete(r.Context(), scopeOf(r), id, shared.Confirmed(r.PostFormValue(shared.ConfirmField)))
	switch {
	case errors.Is(err, shared.ErrConfirmRequired):
		http.Redirect(w, r, fmt.Sprintf("/suppliers/%d/delete", id), http.StatusSeeOther)
	case errors.Is(err, shared.ErrOutOfScope):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case err != nil:
		h.logger.Error("delete supplier failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, fmt.Sprintf("/suppliers/%d", id))
	default:
		h.logger.Info("supplier deleted", slog.Int64("supplier_id", id))
		h.responder.Redirect(w, r, "/suppliers", "success", "Supplier deleted successfully")
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Supplier, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid supplier ID", http.StatusBadRequest)
		return Supplier{}, false
	}
	supplier, err := h.service.Get(r.Context(), scopeOf(r), id)
	if errors.Is(err, shared.ErrOutOfScope) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Supplier{}, false
	}
	if err != nil {
		h.logger.Error("get supplier failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, "/suppliers")
		return Supplier{}, false
	}
	return supplier, true
}

func (h *Handler) loadFailed(w http.ResponseWriter, r *http.Request, err error, title, msg string) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", title, "Failed to load "+strings.ToLower(title))
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, id int64, form SupplierForm, err error) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	fields, general := shared.FormErrors(err)
	h.logger.Warn("save supplier failed", slog.Any("error", err), slog.Int64("id", id))
	h.renderForm(w, r, http.StatusUnprocessableEntity, formPageData{ID: id, Form: form, Errors: fields, General: general})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, data formPageData) {
	if data.Errors == nil {
		data.Errors = shared.FieldErrors{}
	}
	data.Statuses = shared.Statuses
	if scopeOf(r).CompanyID == 0 {
		data.Companies = h.companyOptions(r)
	}
	title := "New supplier"
	if data.ID > 0 {
		title = "Edit supplier"
	}
	h.responder.RenderStatus(w, r, status, "pages/supplier_form.html", title, data)
}

func (h *Handler) companyOptions(r *http.Request) []companies.Company {
	if h.companies == nil {
		return nil
	}
	list, err := h.companies.Options(r.Context())
	if err != nil {
		h.logger.Warn("list companies failed", slog.Any("error", err))
		return nil
	}
	return list
}

package stations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/masterdata/companies"
	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

type stationService interface {
	List(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Station, internalShared.Pagination, error)
	Get(ctx context.Context, scope shared.Scope, id int64) (Station, error)
	Create(ctx context.Context, scope shared.Scope, form StationForm) (Station, error)
	Update(ctx context.Context, scope shared.Scope, id int64, form StationForm) (Station, error)
	Delete(ctx context.Context, scope shared.Scope, id int64, confirmed bool) error
}

type companyOptions interface {
	Options(ctx context.Context) ([]companies.Company, error)
}

type Handler struct {
	logger    *slog.Logger
	service   stationService
	companies companyOptions
	responder *view.Responder
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service stationService, companies companyOptions, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, companies: companies, responder: responder, rbac: rbac}
}

type listPageData struct {
	Stations    []Station
	Filters     shared.ListFilters
	Statuses    []string
	Companies   []companies.Company
	ShowCompany bool
	Pager       view.Pager
}

type formPageData struct {
	ID        int64
	Form      StationForm
	Errors    shared.FieldErrors
	General   string
	Statuses  []string
	Companies []companies.Company
}

// Action is the form post target.
func (d formPageData) Action() string {
	if d.ID == 0 {
		return "/stations"
	}
	return fmt.Sprintf("/stations/%d/edit", d.ID)
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
	stations, pagination, err := h.service.List(r.Context(), scope, filters)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("list stations failed", slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Stations", "Failed to load stations")
		return
	}
	data := listPageData{
		Stations:    stations,
		Filters:     scope.Apply(filters),
		Statuses:    shared.Statuses,
		ShowCompany: scope.CompanyID == 0,
		Pager:       view.NewPager(pagination, r.URL.Query()),
	}
	if data.ShowCompany {
		data.Companies = h.companyOptions(r)
	}
	h.responder.Render(w, r, "pages/stations_list.html", "Stations", data)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	station, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/station_detail.html", station.Name, station)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPageData{Form: StationForm{Status: shared.StatusActive}})
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
	h.logger.Info("station created", slog.Int64("station_id", created.ID), slog.Int64("company_id", created.CompanyID))
	h.responder.Redirect(w, r, "/stations/"+strconv.FormatInt(created.ID, 10), "success", "Station created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	station, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, formPageData{ID: station.ID, Form: formFromStation(station)})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid station ID", http.StatusBadRequest)
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
	h.responder.Redirect(w, r, "/stations/"+strconv.FormatInt(id, 10), "success", "Station updated successfully")
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	station, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/confirm_delete.html", "Delete station", shared.ConfirmDelete{
		Kind:   "station",
		Name:   station.Name,
		Action: fmt.Sprintf("/stations/%d/delete", station.ID),
		Cancel: fmt.Sprintf("/stations/%d", station.ID),
		Details: []string{
			fmt.Sprintf("%d tanks and %d pumps are configured at this station.", station.TankCount, station.PumpCount),
		},
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid station ID", http.StatusBadRequest)
		return
	}
	err = h.service.Delete(r.Context(), scopeOf(r), id, shared.Confirmed(r.PostFormValue(shared.ConfirmField)))
	switch {
	case errors.Is(err, shared.ErrConfirmRequired):
		http.Redirect(w, r, fmt.Sprintf("/stations/%d/delete", id), http.StatusSeeOther)
	case errors.Is(err, shared.ErrOutOfScope):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case err != nil:
		h.logger.Error("delete station failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, fmt.Sprintf("/stations/%d", id))
	default:
		h.logger.Info("station deleted", slog.Int64("station_id", id))
		h.responder.Redirect(w, r, "/stations", "success", "Station deleted successfully")
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Station, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid station ID", http.StatusBadRequest)
		return Station{}, false
	}
	station, err := h.service.Get(r.Context(), scopeOf(r), id)
	if errors.Is(err, shared.ErrOutOfScope) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Station{}, false
	}
	if err != nil {
		h.logger.Error("get station failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, "/stations")
		return Station{}, false
	}
	return station, true
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, id int64, form StationForm, err error) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	fields, general := shared.FormErrors(err)
	h.logger.Warn("save station failed", slog.Any("error", err), slog.Int64("id", id))
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
	title := "New station"
	if data.ID > 0 {
		title = "Edit station"
	}
	h.responder.RenderStatus(w, r, status, "pages/station_form.html", title, data)
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

package shifts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

const shiftsPerPage = 20

type shiftService interface {
	List(ctx context.Context, p shared.Principal, f Filter) ([]Shift, error)
	Get(ctx context.Context, id int64) (Shift, error)
	FormOptions(ctx context.Context, stationID int64) (OpenFormOptions, error)
	Open(ctx context.Context, in OpenShiftInput) (Shift, error)
}

// ClosingDrafts reports the shifts a browser session is part-way through closing.
type ClosingDrafts interface {
	InProgress(ctx context.Context, sessionID string) ([]int64, error)
}

// Handler serves the shift list, detail and open-shift pages.
type Handler struct {
	logger    *slog.Logger
	service   shiftService
	responder *view.Responder
	rbac      rbac.Middleware
	drafts    ClosingDrafts
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service shiftService, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac}
}

// WithClosingDrafts marks shifts with an unfinished closing wizard.
func (h *Handler) WithClosingDrafts(d ClosingDrafts) *Handler {
	h.drafts = d
	return h
}

func (h *Handler) closingDrafts(r *http.Request) map[int64]bool {
	sess := shared.SessionFromContext(r.Context())
	if h.drafts == nil || sess == nil {
		return nil
	}
	ids, err := h.drafts.InProgress(r.Context(), sess.ID)
	if err != nil {
		h.logger.Warn("list closing drafts", slog.Any("error", err))
		return nil
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// MountRoutes registers shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermShiftsView))
		r.Get("/", h.list)
		r.Get("/{id:[0-9]+}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermShiftsOpen))
		r.Get("/open", h.openForm)
		r.Post("/open", h.open)
	})
}

type listPageData struct {
	Shifts    []Shift
	Status    string
	StationID int64
	Statuses  []Status
	Pager     view.Pager
	Closing   map[int64]bool
}

type detailPageData struct {
	Shift    Shift
	CanClose bool
	Resume   bool
}

type openPageData struct {
	StationID int64
	StartTime string
	Options   OpenFormOptions
	Selected  OpenShiftInput
	Errors    map[string]string
}

// Assigned returns the attendant chosen for an island, for re-rendering the form.
func (d openPageData) Assigned(islandID int64) int64 {
	for _, a := range d.Selected.Islands {
		if a.IslandID == islandID {
			return a.AttendantID
		}
	}
	return 0
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	stationID, _ := strconv.ParseInt(q.Get("station_id"), 10, 64)
	filter := Filter{StationID: stationID, Status: ParseStatus(q.Get("status"))}
	page, _ := strconv.Atoi(q.Get("page"))

	items, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("list shifts failed", slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Shifts", backend.UserMessage(err))
		return
	}
	pageItems, pagination := shared.Paginate(items, page, shiftsPerPage)
	h.responder.Render(w, r, "pages/shifts_list.html", "Shifts", listPageData{
		Shifts:    pageItems,
		Status:    string(filter.Status),
		StationID: stationID,
		Statuses:  []Status{StatusOpen, StatusActive, StatusClosed},
		Pager:     view.NewPager(pagination, q),
		Closing:   h.closingDrafts(r),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid shift ID", http.StatusBadRequest)
		return
	}
	sh, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Fail(w, r, err, "/shifts")
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	canClose := sh.Status.Closable() && shared.RoleHas(p.Role, shared.PermShiftsClose)
	h.responder.Render(w, r, "pages/shift_detail.html", fmt.Sprintf("Shift #%d", sh.ID), detailPageData{
		Shift:    sh,
		CanClose: canClose,
		Resume:   canClose && h.closingDrafts(r)[sh.ID],
	})
}

func (h *Handler) stationFor(r *http.Request) int64 {
	p, _ := shared.PrincipalFromContext(r.Context())
	if p.StationID > 0 {
		return p.StationID
	}
	id, _ := strconv.ParseInt(r.FormValue("station_id"), 10, 64)
	return id
}

func (h *Handler) openForm(w http.ResponseWriter, r *http.Request) {
	stationID := h.stationFor(r)
	if stationID <= 0 {
		h.responder.Redirect(w, r, "/shifts", "warning", "Choose a station before opening a shift.")
		return
	}
	opts, err := h.service.FormOptions(r.Context(), stationID)
	if err != nil {
		h.responder.Fail(w, r, err, "/shifts")
		return
	}
	h.responder.Render(w, r, "pages/shift_open.html", "Open shift", openPageData{
		StationID: stationID,
		StartTime: time.Now().Format("2006-01-02T15:04"),
		Options:   opts,
		Errors:    map[string]string{},
	})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	stationID := h.stationFor(r)
	supervisorID, _ := strconv.ParseInt(r.PostFormValue("supervisor_id"), 10, 64)
	startRaw := r.PostFormValue("start_time")
	start, err := time.ParseInLocation("2006-01-02T15:04", startRaw, time.Local)
	errs := map[string]string{}
	if err != nil {
		errs["StartTime"] = "Enter a valid start time"
	}

	opts, optErr := h.service.FormOptions(r.Context(), stationID)
	if optErr != nil {
		h.responder.Fail(w, r, optErr, "/shifts")
		return
	}
	in := OpenShiftInput{StationID: stationID, SupervisorID: supervisorID, StartTime: start}
	for _, island := range opts.Islands {
		attendant, _ := strconv.ParseInt(r.PostFormValue(fmt.Sprintf("attendant_%d", island.ID)), 10, 64)
		if attendant > 0 {
			in.Islands = append(in.Islands, IslandAssignment{IslandID: island.ID, IslandName: island.Name, AttendantID: attendant})
		}
	}

	if len(errs) == 0 {
		sh, err := h.service.Open(r.Context(), in)
		if err == nil {
			h.logger.Info("shift opened", slog.Int64("shift_id", sh.ID), slog.Int64("station_id", stationID))
			h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", sh.ID), "success", "Shift opened")
			return
		}
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			for _, fe := range verrs {
				errs[fe.Field()] = openFieldMessage(fe)
			}
		case errors.Is(err, ErrShiftInProgress):
			errs["general"] = "This station already has a shift in progress. Close it before opening a new one."
		default:
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) || errors.Is(err, backend.ErrNetwork) {
				errs["general"] = backend.UserMessage(err)
			} else {
				errs["general"] = err.Error()
			}
		}
	}

	h.responder.RenderStatus(w, r, http.StatusBadRequest, "pages/shift_open.html", "Open shift", openPageData{
		StationID: stationID,
		StartTime: startRaw,
		Options:   opts,
		Selected:  in,
		Errors:    errs,
	})
}

func openFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "SupervisorID":
		return "Choose a supervisor"
	case "Islands":
		return "Assign an attendant to at least one island"
	case "StartTime":
		return "Enter a valid start time"
	}
	return fe.Error()
}

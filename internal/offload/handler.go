package offload

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
	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

const offloadsPerPage = 20

type offloadService interface {
	List(ctx context.Context, p shared.Principal, f Filter) ([]Offload, error)
	Get(ctx context.Context, id int64) (Offload, error)

	BeginStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error)
	StartDraft(ctx context.Context, sessionID string, stationID int64) (StartDraft, error)
	SavePurchase(ctx context.Context, sessionID string, stationID int64, in PurchaseInput) (StartDraft, error)
	SaveDelivery(ctx context.Context, sessionID string, stationID int64, in Delivery) (StartDraft, error)
	SavePreReadings(ctx context.Context, sessionID string, stationID int64, tank TankReading, pumps []PumpReading) (StartDraft, error)
	NextStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error)
	BackStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error)
	GoToStart(ctx context.Context, sessionID string, stationID int64, target wizard.Step) (StartDraft, error)
	CancelStart(ctx context.Context, sessionID string, stationID int64) error
	SubmitStart(ctx context.Context, sessionID string, stationID int64) (Offload, error)

	BeginComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error)
	CompleteDraft(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error)
	SavePostReadings(ctx context.Context, sessionID string, offloadID int64, in PostReadingsInput) (CompleteDraft, error)
	NextComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error)
	BackComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error)
	GoToComplete(ctx context.Context, sessionID string, offloadID int64, target wizard.Step) (CompleteDraft, error)
	CancelComplete(ctx context.Context, sessionID string, offloadID int64) error
	SubmitComplete(ctx context.Context, sessionID string, offloadID int64) (Offload, error)
}

// Handler serves the offload list, detail and both recording wizards.
type Handler struct {
	logger    *slog.Logger
	service   offloadService
	responder *view.Responder
	rbac      rbac.Middleware
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service offloadService, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac}
}

// MountRoutes registers offload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOffloadsView))
		r.Get("/", h.list)
		r.Get("/{id:[0-9]+}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOffloadsRecord))
		r.Get("/start", h.beginStart)
		r.Post("/start/submit", h.submitStart)
		r.Post("/start/cancel", h.cancelStart)
		r.Get("/start/{step}", h.showStart)
		r.Post("/start/{step}", h.postStart)

		r.Get("/{id:[0-9]+}/complete", h.beginComplete)
		r.Post("/{id:[0-9]+}/complete/submit", h.submitComplete)
		r.Post("/{id:[0-9]+}/complete/cancel", h.cancelComplete)
		r.Get("/{id:[0-9]+}/complete/{step}", h.showComplete)
		r.Post("/{id:[0-9]+}/complete/{step}", h.postComplete)
	})
}

type listPageData struct {
	Offloads []Offload
	Status   string
	Statuses []Status
	Pager    view.Pager
	CanStart bool
}

type detailPageData struct {
	Offload     Offload
	CanComplete bool
}

type wizardPageData struct {
	BaseURL    string
	Step       wizard.Step
	Progress   []wizard.StepView
	Errors     map[string]string
	GuardError string
	CanGoBack  bool
}

// Error returns the message for a form field.
func (d wizardPageData) Error(field string) string {
	return d.Errors[field]
}

// Value prefers the raw submitted value when the field failed to parse.
func (d wizardPageData) Value(field string, current decimal.Decimal) string {
	if raw, ok := d.Errors["raw:"+field]; ok {
		return raw
	}
	if current.IsZero() {
		return ""
	}
	return current.String()
}

type startPageData struct {
	wizardPageData
	Draft    StartDraft
	Purchase Purchase
	Tank     Tank
}

// ArrivalValue formats the arrival time for a datetime-local input.
func (d startPageData) ArrivalValue() string {
	if raw, ok := d.Errors["raw:arrival_time"]; ok {
		return raw
	}
	if d.Draft.Delivery.ArrivalTime.IsZero() {
		return ""
	}
	return d.Draft.Delivery.ArrivalTime.Local().Format("2006-01-02T15:04")
}

type completePageData struct {
	wizardPageData
	Draft CompleteDraft
}

func sessionID(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	return sess.ID, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := Filter{Status: ParseStatus(q.Get("status"))}
	items, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("list offloads failed", slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Offloads", backend.UserMessage(err))
		return
	}
	pageItems, pagination := shared.Paginate(items, page, offloadsPerPage)
	h.responder.Render(w, r, "pages/offloads_list.html", "Offloads", listPageData{
		Offloads: pageItems,
		Status:   string(filter.Status),
		Statuses: []Status{StatusStarted, StatusCompleted},
		Pager:    view.NewPager(pagination, q),
		CanStart: shared.RoleHas(p.Role, shared.PermOffloadsRecord) && p.StationID > 0,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid offload ID", http.StatusBadRequest)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Fail(w, r, err, "/offloads")
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	h.responder.Render(w, r, "pages/offload_detail.html", fmt.Sprintf("Offload #%d", o.ID), detailPageData{
		Offload:     o,
		CanComplete: !o.Completed() && shared.RoleHas(p.Role, shared.PermOffloadsRecord),
	})
}

// Start phase.

const startBase = "/offloads/start"

func (h *Handler) stationID(r *http.Request) int64 {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p.StationID
}

func (h *Handler) beginStart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	d, err := h.service.BeginStart(r.Context(), sid, h.stationID(r))
	if err != nil {
		if errors.Is(err, ErrNoStation) {
			h.responder.Redirect(w, r, "/offloads", "warning", "Offloads are recorded by station staff.")
			return
		}
		h.responder.Fail(w, r, err, "/offloads")
		return
	}
	http.Redirect(w, r, startBase+"/"+string(d.Step), http.StatusSeeOther)
}

func (h *Handler) loadStart(w http.ResponseWriter, r *http.Request) (string, StartDraft, bool) {
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return "", StartDraft{}, false
	}
	d, err := h.service.StartDraft(r.Context(), sid, h.stationID(r))
	if err != nil {
		h.draftMissing(w, r, err, startBase)
		return "", StartDraft{}, false
	}
	return sid, d, true
}

func (h *Handler) draftMissing(w http.ResponseWriter, r *http.Request, err error, entry string) {
	if errors.Is(err, wizard.ErrNoDraft) {
		h.responder.Redirect(w, r, entry, "info", "Your offload session expired. Start again.")
		return
	}
	h.logger.Error("load offload draft", slog.Any("error", err))
	h.responder.RenderStatus(w, r, http.StatusInternalServerError, "pages/error.html", "Offload", "Could not load the offload form. Please try again.")
}

func (h *Handler) showStart(w http.ResponseWriter, r *http.Request) {
	target, err := StartFlow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sid, d, ok := h.loadStart(w, r)
	if !ok {
		return
	}
	if target != d.Step {
		moved, err := h.service.GoToStart(r.Context(), sid, d.StationID, target)
		if err != nil {
			h.responder.Redirect(w, r, startBase+"/"+string(d.Step), "warning", "Complete the current step first.")
			return
		}
		d = moved
	}
	h.renderStart(w, r, http.StatusOK, d, nil, "")
}

func (h *Handler) postStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	step, err := StartFlow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sid, d, ok := h.loadStart(w, r)
	if !ok {
		return
	}
	if step != d.Step {
		h.responder.Redirect(w, r, startBase+"/"+string(d.Step), "warning", "That step is no longer current. Your latest progress is shown.")
		return
	}
	ctx := r.Context()
	if r.PostFormValue("action") == "back" {
		if d, err = h.service.BackStart(ctx, sid, d.StationID); err != nil {
			h.responder.Redirect(w, r, startBase+"/"+string(d.Step), "warning", "There is no earlier step.")
			return
		}
		http.Redirect(w, r, startBase+"/"+string(d.Step), http.StatusSeeOther)
		return
	}

	errs := map[string]string{}
	switch step {
	case StepPurchase:
		purchaseID, _ := strconv.ParseInt(r.PostFormValue("purchase_id"), 10, 64)
		tankID, _ := strconv.ParseInt(r.PostFormValue("tank_id"), 10, 64)
		d, err = h.service.SavePurchase(ctx, sid, d.StationID, PurchaseInput{
			PurchaseID:       purchaseID,
			TankID:           tankID,
			ExpectedQuantity: decimalField(r, "expected_quantity", errs),
		})
	case StepDelivery:
		in := Delivery{
			TruckPlate:   r.PostFormValue("truck_plate"),
			DriverName:   r.PostFormValue("driver_name"),
			DriverPhone:  r.PostFormValue("driver_phone"),
			DeliveryNote: r.PostFormValue("delivery_note"),
			SealNumbers:  splitSeals(r.PostFormValue("seal_numbers")),
		}
		if raw := strings.TrimSpace(r.PostFormValue("arrival_time")); raw != "" {
			at, perr := time.ParseInLocation("2006-01-02T15:04", raw, time.Local)
			if perr != nil {
				errs["arrival_time"] = "Enter a valid date and time"
				errs["raw:arrival_time"] = raw
			} else {
				in.ArrivalTime = at
			}
		}
		d, err = h.service.SaveDelivery(ctx, sid, d.StationID, in)
	case StepPreReadings:
		tank := parseTankReading(r, "pre", errs)
		d, err = h.service.SavePreReadings(ctx, sid, d.StationID, tank, parsePumpReadings(r, "pre", d.PrePumps, errs))
	}
	if !h.mergeFieldErrors(w, r, err, errs) {
		return
	}
	if len(errs) > 0 {
		h.renderStart(w, r, http.StatusUnprocessableEntity, d, errs, "")
		return
	}
	if r.PostFormValue("action") == "next" {
		next, err := h.service.NextStart(ctx, sid, d.StationID)
		if err != nil {
			if errors.Is(err, wizard.ErrGuardRejected) {
				h.renderStart(w, r, http.StatusUnprocessableEntity, d, nil, capitalize(err.Error()))
				return
			}
			h.responder.Redirect(w, r, startBase+"/"+string(d.Step), "warning", "This is the last step.")
			return
		}
		d = next
	}
	http.Redirect(w, r, startBase+"/"+string(d.Step), http.StatusSeeOther)
}

// mergeFieldErrors folds service field errors into errs. It writes an error
// page and reports false for any other failure.
func (h *Handler) mergeFieldErrors(w http.ResponseWriter, r *http.Request, err error, errs map[string]string) bool {
	if err == nil {
		return true
	}
	var fieldErrs FieldErrors
	if errors.As(err, &fieldErrs) {
		for k, v := range fieldErrs {
			if _, exists := errs[k]; !exists {
				errs[k] = v
			}
		}
		return true
	}
	h.logger.Error("save offload step", slog.Any("error", err))
	h.responder.RenderStatus(w, r, http.StatusInternalServerError, "pages/error.html", "Offload", "Could not save the offload form. Please try again.")
	return false
}

func (h *Handler) renderStart(w http.ResponseWriter, r *http.Request, status int, d StartDraft, errs map[string]string, guard string) {
	if errs == nil {
		errs = map[string]string{}
	}
	data := startPageData{
		wizardPageData: wizardPageData{
			BaseURL:    startBase,
			Step:       d.Step,
			Progress:   StartFlow.Progress(d.Step),
			Errors:     errs,
			GuardError: guard,
			CanGoBack:  d.Step != StartFlow.First(),
		},
		Draft: d,
	}
	data.Purchase, _ = d.Purchase()
	data.Tank, _ = d.Tank()
	h.responder.RenderStatus(w, r, status, "pages/offload_start_"+string(d.Step)+".html", "Start offload", data)
}

func (h *Handler) submitStart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	o, err := h.service.SubmitStart(r.Context(), sid, h.stationID(r))
	if err == nil {
		h.responder.Redirect(w, r, fmt.Sprintf("/offloads/%d", o.ID), "success", "Offload started. Record the readings after offloading to complete it.")
		return
	}
	h.submitFailed(w, r, err, startBase+"/"+string(StepReview), "/offloads")
}

func (h *Handler) cancelStart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	if err := h.service.CancelStart(r.Context(), sid, h.stationID(r)); err != nil {
		h.logger.Error("cancel offload start", slog.Any("error", err))
	}
	h.responder.Redirect(w, r, "/offloads", "info", "Offload discarded.")
}

func (h *Handler) submitFailed(w http.ResponseWriter, r *http.Request, err error, review, done string) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, wizard.ErrNoDraft):
		h.responder.Redirect(w, r, done, "info", "There is no offload in progress.")
	case errors.Is(err, shared.ErrAlreadySubmitted):
		h.responder.Redirect(w, r, done, "info", "This offload was already submitted.")
	case errors.Is(err, shared.ErrSubmissionInProgress):
		h.responder.Redirect(w, r, review, "warning", "Another submission for this offload is in progress. Try again in a moment.")
	case errors.Is(err, wizard.ErrGuardRejected):
		h.responder.Redirect(w, r, review, "danger", capitalize(err.Error())+".")
	case errors.Is(err, wizard.ErrInvalidTransition):
		h.responder.Redirect(w, r, review, "warning", "Complete every step before submitting.")
	default:
		h.responder.Redirect(w, r, review, "danger", "Submission failed: "+backend.UserMessage(err))
	}
}

// Complete phase.

func completeBase(id int64) string {
	return fmt.Sprintf("/offloads/%d/complete", id)
}

func offloadID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) beginComplete(w http.ResponseWriter, r *http.Request) {
	id, err := offloadID(r)
	if err != nil {
		http.Error(w, "Invalid offload ID", http.StatusBadRequest)
		return
	}
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	d, err := h.service.BeginComplete(r.Context(), sid, id)
	if err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			h.responder.Redirect(w, r, fmt.Sprintf("/offloads/%d", id), "info", "This offload is already completed.")
			return
		}
		h.responder.Fail(w, r, err, fmt.Sprintf("/offloads/%d", id))
		return
	}
	http.Redirect(w, r, completeBase(id)+"/"+string(d.Step), http.StatusSeeOther)
}

func (h *Handler) loadComplete(w http.ResponseWriter, r *http.Request) (string, CompleteDraft, bool) {
	id, err := offloadID(r)
	if err != nil {
		http.Error(w, "Invalid offload ID", http.StatusBadRequest)
		return "", CompleteDraft{}, false
	}
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return "", CompleteDraft{}, false
	}
	d, err := h.service.CompleteDraft(r.Context(), sid, id)
	if err != nil {
		h.draftMissing(w, r, err, completeBase(id))
		return "", CompleteDraft{}, false
	}
	return sid, d, true
}

func (h *Handler) showComplete(w http.ResponseWriter, r *http.Request) {
	target, err := CompleteFlow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sid, d, ok := h.loadComplete(w, r)
	if !ok {
		return
	}
	if target != d.Step {
		moved, err := h.service.GoToComplete(r.Context(), sid, d.OffloadID, target)
		if err != nil {
			h.responder.Redirect(w, r, completeBase(d.OffloadID)+"/"+string(d.Step), "warning", "Complete the current step first.")
			return
		}
		d = moved
	}
	h.renderComplete(w, r, http.StatusOK, d, nil, "")
}

func (h *Handler) postComplete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	step, err := CompleteFlow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sid, d, ok := h.loadComplete(w, r)
	if !ok {
		return
	}
	base := completeBase(d.OffloadID)
	if step != d.Step {
		h.responder.Redirect(w, r, base+"/"+string(d.Step), "warning", "That step is no longer current. Your latest progress is shown.")
		return
	}
	ctx := r.Context()
	if r.PostFormValue("action") == "back" {
		if d, err = h.service.BackComplete(ctx, sid, d.OffloadID); err != nil {
			h.responder.Redirect(w, r, base+"/"+string(d.Step), "warning", "There is no earlier step.")
			return
		}
		http.Redirect(w, r, base+"/"+string(d.Step), http.StatusSeeOther)
		return
	}

	errs := map[string]string{}
	if step == StepPostReadings {
		d, err = h.service.SavePostReadings(ctx, sid, d.OffloadID, PostReadingsInput{
			Tank:           parseTankReading(r, "post", errs),
			Pumps:          parsePumpReadings(r, "post", d.PostPumps, errs),
			ActualQuantity: decimalField(r, "actual_quantity", errs),
			Notes:          r.PostFormValue("notes"),
		})
		if !h.mergeFieldErrors(w, r, err, errs) {
			return
		}
	}
	if len(errs) > 0 {
		h.renderComplete(w, r, http.StatusUnprocessableEntity, d, errs, "")
		return
	}
	if r.PostFormValue("action") == "next" {
		next, err := h.service.NextComplete(ctx, sid, d.OffloadID)
		if err != nil {
			if errors.Is(err, wizard.ErrGuardRejected) {
				h.renderComplete(w, r, http.StatusUnprocessableEntity, d, nil, capitalize(err.Error()))
				return
			}
			h.responder.Redirect(w, r, base+"/"+string(d.Step), "warning", "This is the last step.")
			return
		}
		d = next
	}
	http.Redirect(w, r, base+"/"+string(d.Step), http.StatusSeeOther)
}

func (h *Handler) renderComplete(w http.ResponseWriter, r *http.Request, status int, d CompleteDraft, errs map[string]string, guard string) {
	if errs == nil {
		errs = map[string]string{}
	}
	data := completePageData{
		wizardPageData: wizardPageData{
			BaseURL:    completeBase(d.OffloadID),
			Step:       d.Step,
			Progress:   CompleteFlow.Progress(d.Step),
			Errors:     errs,
			GuardError: guard,
			CanGoBack:  d.Step != CompleteFlow.First(),
		},
		Draft: d,
	}
	h.responder.RenderStatus(w, r, status, "pages/offload_complete_"+string(d.Step)+".html", fmt.Sprintf("Complete offload #%d", d.OffloadID), data)
}

func (h *Handler) submitComplete(w http.ResponseWriter, r *http.Request) {
	id, err := offloadID(r)
	if err != nil {
		http.Error(w, "Invalid offload ID", http.StatusBadRequest)
		return
	}
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	if _, err := h.service.SubmitComplete(r.Context(), sid, id); err != nil {
		h.submitFailed(w, r, err, completeBase(id)+"/"+string(StepReview), fmt.Sprintf("/offloads/%d", id))
		return
	}
	h.responder.Redirect(w, r, fmt.Sprintf("/offloads/%d", id), "success", "Offload completed.")
}

func (h *Handler) cancelComplete(w http.ResponseWriter, r *http.Request) {
	id, err := offloadID(r)
	if err != nil {
		http.Error(w, "Invalid offload ID", http.StatusBadRequest)
		return
	}
	sid, ok := sessionID(r)
	if !ok {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return
	}
	if err := h.service.CancelComplete(r.Context(), sid, id); err != nil {
		h.logger.Error("cancel offload completion", slog.Any("error", err))
	}
	h.responder.Redirect(w, r, fmt.Sprintf("/offloads/%d", id), "info", "Completion discarded.")
}

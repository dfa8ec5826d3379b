package shiftclosehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/platform/httpx"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/reconcile"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/shiftclose"
	"github.com/pumpline-erp/pumpline/internal/view"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

type closeService interface {
	Start(ctx context.Context, sessionID string, shiftID int64) (shiftclose.Draft, error)
	Draft(ctx context.Context, sessionID string, shiftID int64) (shiftclose.Draft, error)
	Summary(d shiftclose.Draft) shiftclose.Summary
	RefreshCheck(ctx context.Context, sessionID string, shiftID int64) (shiftclose.Draft, error)
	SavePumps(ctx context.Context, sessionID string, shiftID int64, in []shiftclose.PumpInput) (shiftclose.Draft, error)
	SaveTanks(ctx context.Context, sessionID string, shiftID int64, in []shiftclose.TankInput) (shiftclose.Draft, error)
	SaveCollections(ctx context.Context, sessionID string, shiftID int64, in []shiftclose.CollectionInput, notes string) (shiftclose.Draft, error)
	Next(ctx context.Context, sessionID string, shiftID int64) (shiftclose.Draft, error)
	Back(ctx context.Context, sessionID string, shiftID int64) (shiftclose.Draft, error)
	GoTo(ctx context.Context, sessionID string, shiftID int64, target wizard.Step) (shiftclose.Draft, error)
	Cancel(ctx context.Context, sessionID string, shiftID int64) error
	Finalize(ctx context.Context, sessionID string, shiftID int64) (shiftclose.CloseResult, error)
}

type pdfRenderer interface {
	Render(ctx context.Context, name, title string, data any) ([]byte, error)
}

// Handler serves the shift closing wizard under /shifts/{id}/close.
type Handler struct {
	logger    *slog.Logger
	service   closeService
	responder *view.Responder
	rbac      rbac.Middleware
	pdf       pdfRenderer
}

// NewHandler constructs the handler. pdf may be nil when no PDF service is
// configured; the PDF download is then not offered.
func NewHandler(logger *slog.Logger, service closeService, responder *view.Responder, rbac rbac.Middleware, pdf pdfRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac, pdf: pdf}
}

// MountRoutes registers the wizard routes. The parent route must carry the
// {id} shift parameter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermShiftsClose))
		r.Get("/", h.start)
		r.Post("/refresh", h.refresh)
		r.Post("/finalize", h.finalize)
		r.Post("/cancel", h.cancel)
		r.Get("/summary.json", h.summaryJSON)
		if h.pdf != nil {
			r.Get("/summary.pdf", h.summaryPDF)
		}
		r.Get("/{step}", h.showStep)
		r.Post("/{step}", h.submitStep)
	})
}

type stepPageData struct {
	ShiftID    int64
	BaseURL    string
	Step       wizard.Step
	Progress   []wizard.StepView
	Draft      shiftclose.Draft
	Summary    shiftclose.Summary
	Errors     map[string]string
	GuardError string
	CanGoBack  bool
	PDF        bool
	Methods    []paymentMethod
}

type paymentMethod struct {
	Key    string
	Label  string
	amount func(reconcile.Collection) decimal.Decimal
}

// Amount reads this method's value from a collection.
func (m paymentMethod) Amount(c reconcile.Collection) decimal.Decimal {
	return m.amount(c)
}

var paymentMethods = []paymentMethod{
	{Key: "cash", Label: "Cash", amount: func(c reconcile.Collection) decimal.Decimal { return c.Cash }},
	{Key: "mobile_money", Label: "Mobile money", amount: func(c reconcile.Collection) decimal.Decimal { return c.MobileMoney }},
	{Key: "visa", Label: "Visa", amount: func(c reconcile.Collection) decimal.Decimal { return c.Visa }},
	{Key: "mastercard", Label: "Mastercard", amount: func(c reconcile.Collection) decimal.Decimal { return c.Mastercard }},
	{Key: "debt", Label: "Debt", amount: func(c reconcile.Collection) decimal.Decimal { return c.Debt }},
	{Key: "other", Label: "Other", amount: func(c reconcile.Collection) decimal.Decimal { return c.Other }},
}

// Error returns the message for a form field.
func (d stepPageData) Error(field string) string {
	return d.Errors[field]
}

// Value prefers the raw submitted value when the field failed to parse.
func (d stepPageData) Value(field string, current decimal.Decimal) string {
	if raw, ok := d.Errors["raw:"+field]; ok {
		return raw
	}
	if current.IsZero() {
		return ""
	}
	return current.String()
}

type printPageData struct {
	Draft       shiftclose.Draft
	Summary     shiftclose.Summary
	GeneratedAt time.Time
}

func (h *Handler) base(shiftID int64) string {
	return fmt.Sprintf("/shifts/%d/close", shiftID)
}

func (h *Handler) stepURL(shiftID int64, step wizard.Step) string {
	return h.base(shiftID) + "/" + string(step)
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || shiftID <= 0 {
		http.Error(w, "Invalid shift ID", http.StatusBadRequest)
		return "", 0, false
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
		return "", 0, false
	}
	return sess.ID, shiftID, true
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	d, err := h.service.Start(r.Context(), sid, shiftID)
	if err != nil {
		if errors.Is(err, shiftclose.ErrShiftClosed) {
			h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", shiftID), "warning", "This shift is already closed.")
			return
		}
		h.responder.Fail(w, r, err, fmt.Sprintf("/shifts/%d", shiftID))
		return
	}
	http.Redirect(w, r, h.stepURL(shiftID, d.Step), http.StatusSeeOther)
}

// loadDraft fetches the draft or sends the user back to the wizard entry.
func (h *Handler) loadDraft(w http.ResponseWriter, r *http.Request, sid string, shiftID int64) (shiftclose.Draft, bool) {
	d, err := h.service.Draft(r.Context(), sid, shiftID)
	if err == nil {
		return d, true
	}
	if errors.Is(err, wizard.ErrNoDraft) {
		h.responder.Redirect(w, r, h.base(shiftID), "info", "Your closing session expired. Start again.")
		return shiftclose.Draft{}, false
	}
	h.logger.Error("load closing draft", slog.Int64("shift_id", shiftID), slog.Any("error", err))
	h.responder.RenderStatus(w, r, http.StatusInternalServerError, "pages/error.html", "Close shift", "Could not load the closing form. Please try again.")
	return shiftclose.Draft{}, false
}

func (h *Handler) showStep(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	target, err := shiftclose.Flow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	d, ok := h.loadDraft(w, r, sid, shiftID)
	if !ok {
		return
	}
	if target != d.Step {
		moved, err := h.service.GoTo(r.Context(), sid, shiftID, target)
		if err != nil {
			if !errors.Is(err, wizard.ErrInvalidTransition) {
				h.logger.Error("move closing step", slog.String("step", string(target)), slog.Any("error", err))
			}
			h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), "warning", "Complete the current step first.")
			return
		}
		d = moved
	}
	h.renderStep(w, r, http.StatusOK, d, nil, "")
}

func (h *Handler) submitStep(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	step, err := shiftclose.Flow.Parse(chi.URLParam(r, "step"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	d, ok := h.loadDraft(w, r, sid, shiftID)
	if !ok {
		return
	}
	if step != d.Step {
		h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), "warning", "That step is no longer current. Your latest progress is shown.")
		return
	}

	action := r.PostFormValue("action")
	if action == "back" {
		d, err = h.service.Back(r.Context(), sid, shiftID)
		if err != nil {
			h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), "warning", "There is no earlier step.")
			return
		}
		http.Redirect(w, r, h.stepURL(shiftID, d.Step), http.StatusSeeOther)
		return
	}

	errs := map[string]string{}
	switch step {
	case shiftclose.StepPumps:
		d, err = h.service.SavePumps(r.Context(), sid, shiftID, parsePumps(r, d, errs))
	case shiftclose.StepTanks:
		d, err = h.service.SaveTanks(r.Context(), sid, shiftID, parseTanks(r, d, errs))
	case shiftclose.StepCollections:
		d, err = h.service.SaveCollections(r.Context(), sid, shiftID, parseCollections(r, d, errs), strings.TrimSpace(r.PostFormValue("notes")))
	}
	var fieldErrs shiftclose.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		for k, v := range fieldErrs {
			if _, exists := errs[k]; !exists {
				errs[k] = capitalize(v)
			}
		}
	default:
		h.logger.Error("save closing step", slog.String("step", string(step)), slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusInternalServerError, "pages/error.html", "Close shift", "Could not save the closing form. Please try again.")
		return
	}
	if len(errs) > 0 {
		h.renderStep(w, r, http.StatusUnprocessableEntity, d, errs, "")
		return
	}

	if action == "next" {
		next, err := h.service.Next(r.Context(), sid, shiftID)
		if err != nil {
			if errors.Is(err, wizard.ErrGuardRejected) {
				h.renderStep(w, r, http.StatusUnprocessableEntity, d, nil, capitalize(err.Error()))
				return
			}
			h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), "warning", "This is the last step.")
			return
		}
		d = next
	}
	http.Redirect(w, r, h.stepURL(shiftID, d.Step), http.StatusSeeOther)
}

func (h *Handler) renderStep(w http.ResponseWriter, r *http.Request, status int, d shiftclose.Draft, errs map[string]string, guard string) {
	if errs == nil {
		errs = map[string]string{}
	}
	data := stepPageData{
		ShiftID:    d.ShiftID,
		BaseURL:    h.base(d.ShiftID),
		Step:       d.Step,
		Progress:   shiftclose.Flow.Progress(d.Step),
		Draft:      d,
		Summary:    h.service.Summary(d),
		Errors:     errs,
		GuardError: guard,
		CanGoBack:  d.Step != shiftclose.Flow.First(),
		PDF:        h.pdf != nil,
		Methods:    paymentMethods,
	}
	title := fmt.Sprintf("Close shift #%d", d.ShiftID)
	h.responder.RenderStatus(w, r, status, "pages/shiftclose_"+string(d.Step)+".html", title, data)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	d, err := h.service.RefreshCheck(r.Context(), sid, shiftID)
	if err != nil {
		if errors.Is(err, wizard.ErrNoDraft) {
			http.Redirect(w, r, h.base(shiftID), http.StatusSeeOther)
			return
		}
		h.responder.Fail(w, r, err, h.stepURL(shiftID, shiftclose.StepValidation))
		return
	}
	kind, msg := "success", "Pre-closing check passed."
	if !d.Check.Ready() {
		kind, msg = "warning", "The shift cannot be closed yet."
	}
	h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), kind, msg)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	summaryURL := h.stepURL(shiftID, shiftclose.StepSummary)
	res, err := h.service.Finalize(r.Context(), sid, shiftID)
	if err == nil {
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("Shift #%d closed.", shiftID)
		}
		h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", shiftID), "success", msg)
		return
	}
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, wizard.ErrNoDraft):
		h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", shiftID), "info", "There is no closing in progress for this shift.")
	case errors.Is(err, shared.ErrAlreadySubmitted):
		h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", shiftID), "info", "This closing was already submitted.")
	case errors.Is(err, shared.ErrSubmissionInProgress):
		h.responder.Redirect(w, r, summaryURL, "warning", "Another submission for this shift is in progress. Try again in a moment.")
	case errors.Is(err, wizard.ErrGuardRejected):
		h.responder.Redirect(w, r, summaryURL, "danger", capitalize(err.Error())+".")
	case errors.Is(err, wizard.ErrInvalidTransition):
		h.responder.Redirect(w, r, h.base(shiftID), "warning", "Complete every step before finalizing.")
	default:
		h.responder.Redirect(w, r, summaryURL, "danger", "Closing failed: "+backend.UserMessage(err))
	}
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), sid, shiftID); err != nil {
		h.logger.Error("cancel closing", slog.Int64("shift_id", shiftID), slog.Any("error", err))
	}
	h.responder.Redirect(w, r, fmt.Sprintf("/shifts/%d", shiftID), "info", "Shift closing discarded.")
}

type summaryResponse struct {
	ShiftID   int64              `json:"shift_id"`
	Step      wizard.Step        `json:"step"`
	Summary   shiftclose.Summary `json:"summary"`
	LastError string             `json:"last_error,omitempty"`
}

func (h *Handler) summaryJSON(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	d, err := h.service.Draft(r.Context(), sid, shiftID)
	if err != nil {
		if errors.Is(err, wizard.ErrNoDraft) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		ShiftID:   shiftID,
		Step:      d.Step,
		Summary:   h.service.Summary(d),
		LastError: d.LastError,
	})
}

func (h *Handler) summaryPDF(w http.ResponseWriter, r *http.Request) {
	sid, shiftID, ok := h.params(w, r)
	if !ok {
		return
	}
	d, ok := h.loadDraft(w, r, sid, shiftID)
	if !ok {
		return
	}
	title := fmt.Sprintf("Shift #%d closing summary", shiftID)
	pdf, err := h.pdf.Render(r.Context(), "pages/shiftclose_print.html", title, printPageData{
		Draft:       d,
		Summary:     h.service.Summary(d),
		GeneratedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error("render closing summary pdf", slog.Int64("shift_id", shiftID), slog.Any("error", err))
		h.responder.Redirect(w, r, h.stepURL(shiftID, d.Step), "danger", "The PDF service is unavailable. Try again later.")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=shift-%d-summary.pdf", shiftID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// decimalField parses an optional non-blank number. Thousands separators are
// accepted. Invalid input is recorded in errs with the raw value kept for
// re-rendering, and the saved draft keeps prev.
func decimalField(r *http.Request, name string, prev decimal.Decimal, errs map[string]string) decimal.Decimal {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		errs[name] = "Enter a number"
		errs["raw:"+name] = raw
		return prev
	}
	return v
}

func parsePumps(r *http.Request, d shiftclose.Draft, errs map[string]string) []shiftclose.PumpInput {
	out := make([]shiftclose.PumpInput, 0, len(d.Pumps))
	for _, p := range d.Pumps {
		id := strconv.FormatInt(p.PumpID, 10)
		out = append(out, shiftclose.PumpInput{
			PumpID:      p.PumpID,
			EndElectric: decimalField(r, "end_electric_"+id, p.EndElectric, errs),
			EndManual:   decimalField(r, "end_manual_"+id, p.EndManual, errs),
			EndCash:     decimalField(r, "end_cash_"+id, p.EndCash, errs),
		})
	}
	return out
}

func parseTanks(r *http.Request, d shiftclose.Draft, errs map[string]string) []shiftclose.TankInput {
	out := make([]shiftclose.TankInput, 0, len(d.Tanks))
	for _, t := range d.Tanks {
		id := strconv.FormatInt(t.TankID, 10)
		out = append(out, shiftclose.TankInput{
			TankID:      t.TankID,
			EndDip:      decimalField(r, "end_dip_"+id, t.EndDip, errs),
			EndVolume:   decimalField(r, "end_volume_"+id, t.EndVolume, errs),
			Temperature: decimalField(r, "temperature_"+id, t.Temperature, errs),
			Density:     decimalField(r, "density_"+id, t.Density, errs),
		})
	}
	return out
}

func parseCollections(r *http.Request, d shiftclose.Draft, errs map[string]string) []shiftclose.CollectionInput {
	out := make([]shiftclose.CollectionInput, 0, len(d.Collections))
	for _, c := range d.Collections {
		id := strconv.FormatInt(c.IslandID, 10)
		out = append(out, shiftclose.CollectionInput{
			IslandID: c.IslandID,
			Amounts: reconcile.Collection{
				Cash:        decimalField(r, "cash_"+id, c.Amounts.Cash, errs),
				MobileMoney: decimalField(r, "mobile_money_"+id, c.Amounts.MobileMoney, errs),
				Visa:        decimalField(r, "visa_"+id, c.Amounts.Visa, errs),
				Mastercard:  decimalField(r, "mastercard_"+id, c.Amounts.Mastercard, errs),
				Debt:        decimalField(r, "debt_"+id, c.Amounts.Debt, errs),
				Other:       decimalField(r, "other_"+id, c.Amounts.Other, errs),
			},
			Notes: strings.TrimSpace(r.PostFormValue("notes_" + id)),
		})
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

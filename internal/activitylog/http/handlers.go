package activityloghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pumpline-erp/pumpline/internal/activitylog"
	"github.com/pumpline-erp/pumpline/internal/export"
	mdshared "github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

const (
	basePath          = "/activity-log"
	dateLayout        = "2006-01-02"
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters activitylog.TimelineFilters) (activitylog.Result, error)
	Export(ctx context.Context, filters activitylog.TimelineFilters) ([]activitylog.Entry, error)
}

// PDFRenderer turns a print template into a PDF.
type PDFRenderer interface {
	Render(ctx context.Context, name, title string, data any) ([]byte, error)
}

// Handler serves the activity log and its exports.
type Handler struct {
	logger    *slog.Logger
	service   TimelineService
	responder *view.Responder
	rbac      rbac.Middleware
	pdf       PDFRenderer
	now       func() time.Time
}

// NewHandler builds the handler. pdf may be nil.
func NewHandler(logger *slog.Logger, service TimelineService, responder *view.Responder, rbac rbac.Middleware, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		responder: responder,
		rbac:      rbac,
		pdf:       pdf,
		now:       time.Now,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, r, "load activity log", err)
		return
	}
	h.responder.Render(w, r, "pages/activity_log.html", "Activity log", h.buildViewModel(r, filters, result))
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, filters, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	export.Attachment(w, exportName(filters, "csv"), export.ContentTypeCSV)
	if err := export.WriteCSV(w, activitylog.Table(rows)); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	rows, filters, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	export.Attachment(w, exportName(filters, "xlsx"), export.ContentTypeXLSX)
	if err := export.WriteXLSX(w, activitylog.Table(rows)); err != nil {
		h.logger.Warn("write xlsx", slog.Any("error", err))
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		http.Error(w, activitylog.ErrPDFUnavailable.Error(), http.StatusNotImplemented)
		return
	}
	rows, filters, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	vm := h.buildViewModel(r, filters, activitylog.Result{Rows: rows, Paging: activitylog.PagingInfo{Page: 1, PageSize: len(rows)}})
	pdf, err := h.pdf.Render(r.Context(), "pages/activity_log_print.html", "Activity log", vm)
	if err != nil {
		h.handleServerError(w, r, "render activity log pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(filters, "pdf")))
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("write pdf", slog.Any("error", err))
	}
}

func (h *Handler) exportRows(w http.ResponseWriter, r *http.Request) ([]activitylog.Entry, activitylog.TimelineFilters, bool) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, r, err)
		return nil, filters, false
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, r, "export activity log", err)
		return nil, filters, false
	}
	h.logger.Info("activity log exported", slog.Int("rows", len(rows)), slog.String("path", r.URL.Path))
	return rows, filters, true
}

func exportName(f activitylog.TimelineFilters, ext string) string {
	return fmt.Sprintf("activity-log-%s-%s.%s", f.From.Format(dateLayout), f.To.Format(dateLayout), ext)
}

func (h *Handler) parseFilters(r *http.Request) (activitylog.TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return activitylog.TimelineFilters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return activitylog.TimelineFilters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return activitylog.TimelineFilters{}, validationError{field: "range"}
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return activitylog.TimelineFilters{}, validationError{field: "range"}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return activitylog.TimelineFilters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := activitylog.DefaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return activitylog.TimelineFilters{}, validationError{field: "page_size"}
		}
		if parsed > activitylog.MaxPageSize {
			parsed = activitylog.MaxPageSize
		}
		pageSize = parsed
	}

	filters := activitylog.TimelineFilters{
		From:     fromTime,
		To:       toTime,
		User:     strings.TrimSpace(q.Get("user")),
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}
	filters.CompanyID, _ = strconv.ParseInt(q.Get("company_id"), 10, 64)
	filters.StationID, _ = strconv.ParseInt(q.Get("station_id"), 10, 64)

	// Company and station users only ever see their own activity.
	p, _ := shared.PrincipalFromContext(r.Context())
	scope := mdshared.ScopeFor(p)
	if scope.CompanyID != 0 {
		filters.CompanyID = scope.CompanyID
	}
	if scope.StationID != 0 {
		filters.StationID = scope.StationID
	}
	return filters, nil
}

func (h *Handler) buildViewModel(r *http.Request, filters activitylog.TimelineFilters, result activitylog.Result) activitylog.ViewModel {
	rows := make([]activitylog.Entry, len(result.Rows))
	copy(rows, result.Rows)
	vm := activitylog.ViewModel{
		Filters: activitylog.FiltersViewModel{
			From:   filters.From,
			To:     filters.To,
			User:   filters.User,
			Entity: filters.Entity,
			Action: filters.Action,
		},
		Rows:        rows,
		Paging:      result.Paging,
		Entities:    activitylog.Entities,
		Actions:     activitylog.Actions,
		GeneratedAt: h.now(),
	}

	q := url.Values{}
	q.Set("from", filters.From.Format(dateLayout))
	q.Set("to", filters.To.Format(dateLayout))
	for key, value := range map[string]string{"user": filters.User, "entity": filters.Entity, "action": filters.Action} {
		if value != "" {
			q.Set(key, value)
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		q.Set("page_size", strconv.Itoa(filters.PageSize))
	}
	vm.Links.CSV = basePath + "/export.csv?" + q.Encode()
	vm.Links.XLSX = basePath + "/export.xlsx?" + q.Encode()
	if h.pdf != nil {
		vm.Links.PDF = basePath + "/export.pdf?" + q.Encode()
	}
	if result.Paging.PrevPage > 0 {
		q.Set("page", strconv.Itoa(result.Paging.PrevPage))
		vm.Links.Prev = basePath + "?" + q.Encode()
	}
	if result.Paging.NextPage > 0 {
		q.Set("page", strconv.Itoa(result.Paging.NextPage))
		vm.Links.Next = basePath + "?" + q.Encode()
	}
	return vm
}

func (h *Handler) handleFilterError(w http.ResponseWriter, r *http.Request, err error) {
	var v validationError
	if errors.As(err, &v) {
		h.responder.RenderStatus(w, r, http.StatusBadRequest, "pages/error.html", "Activity log", v.message())
		return
	}
	h.handleServerError(w, r, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Activity log", "Failed to load the activity log")
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}

func (v validationError) message() string {
	switch v.field {
	case "from", "to":
		return "Dates must be in YYYY-MM-DD format"
	case "range":
		return "The date range must run forwards and span at most 90 days"
	}
	return "Invalid " + strings.ReplaceAll(v.field, "_", " ")
}

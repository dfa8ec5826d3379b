package activitylog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// exportLimit caps one export so a wide range cannot exhaust memory.
	exportLimit = 10000
)

// ErrPDFUnavailable is returned when no PDF renderer is configured.
var ErrPDFUnavailable = errors.New("activitylog: pdf export not configured")

// Repository fetches a window of the activity log.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error)
}

// Result wraps one timeline page.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}

// Service coordinates activity log reads.
type Service struct {
	repo Repository
}

// NewService builds the activity log service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("activitylog: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, filters, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, fmt.Errorf("activitylog: timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every entry matching filters, up to exportLimit.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("activitylog: repository not configured")
	}
	rows, err := s.repo.Window(ctx, filters, 0, exportLimit)
	if err != nil {
		return nil, fmt.Errorf("activitylog: export: %w", err)
	}
	return rows, nil
}

type repository struct {
	client *backend.Client
}

// NewRepository returns the backend-backed repository.
func NewRepository(client *backend.Client) Repository {
	return &repository{client: client}
}

func (r *repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	q := url.Values{}
	if !filters.From.IsZero() {
		q.Set("from", filters.From.Format(time.RFC3339))
	}
	if !filters.To.IsZero() {
		// To is a calendar day; the whole day is included.
		q.Set("to", filters.To.Add(24*time.Hour-time.Second).Format(time.RFC3339))
	}
	setText(q, "user", filters.User)
	setText(q, "entity", filters.Entity)
	setText(q, "action", filters.Action)
	if filters.CompanyID > 0 {
		q.Set("company_id", strconv.FormatInt(filters.CompanyID, 10))
	}
	if filters.StationID > 0 {
		q.Set("station_id", strconv.FormatInt(filters.StationID, 10))
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out []Entry
	if err := r.client.Get(ctx, "/activity-log", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func setText(q url.Values, key, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		q.Set(key, trimmed)
	}
}

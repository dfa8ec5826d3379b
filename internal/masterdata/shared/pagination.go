package shared

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
	Status  string

	// Entity specific filters
	CompanyID int64
	StationID int64
	Role      string
}

// ParseListFilters reads filters from a list page query string.
func ParseListFilters(q url.Values) ListFilters {
	f := ListFilters{
		Search:  strings.TrimSpace(q.Get("search")),
		SortBy:  strings.TrimSpace(q.Get("sort")),
		SortDir: strings.ToLower(strings.TrimSpace(q.Get("dir"))),
		Status:  strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Role:    strings.TrimSpace(q.Get("role")),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
	f.CompanyID, _ = strconv.ParseInt(q.Get("company_id"), 10, 64)
	f.StationID, _ = strconv.ParseInt(q.Get("station_id"), 10, 64)
	return f
}

// SortLink returns the query for sorting by key, flipping the direction
// when key is already the active sort.
func (f ListFilters) SortLink(key string) string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Role != "" {
		q.Set("role", f.Role)
	}
	if f.CompanyID > 0 {
		q.Set("company_id", strconv.FormatInt(f.CompanyID, 10))
	}
	if f.StationID > 0 {
		q.Set("station_id", strconv.FormatInt(f.StationID, 10))
	}
	dir := SortAsc
	if f.SortBy == key && f.SortDir == SortAsc {
		dir = SortDesc
	}
	q.Set("sort", key)
	q.Set("dir", dir)
	return "?" + q.Encode()
}

// Matches reports whether any value contains search, ignoring case.
func Matches(search string, values ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// Sorter compares two records on one column.
type Sorter[T any] func(a, b T) int

// ByString builds a case-insensitive Sorter on a string column.
func ByString[T any](get func(T) string) Sorter[T] {
	return func(a, b T) int {
		return cmp.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
	}
}

// Sort orders items by the filter's column, falling back to fallback when
// the requested column is unknown. The sort is stable.
func Sort[T any](items []T, f ListFilters, sorters map[string]Sorter[T], fallback string) {
	by, ok := sorters[f.SortBy]
	if !ok {
		by = sorters[fallback]
	}
	if by == nil {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		if f.SortDir == SortDesc {
			return by(b, a)
		}
		return by(a, b)
	})
}

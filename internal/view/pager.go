package view

import (
	"html/template"
	"net/url"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

// Pager is the pagination partial model: page metadata plus the current
// filters so page links keep them.
type Pager struct {
	shared.Pagination
	Query template.URL
}

// NewPager builds a Pager from the request query, dropping the page key.
func NewPager(p shared.Pagination, query url.Values) Pager {
	q := url.Values{}
	for k, v := range query {
		if k == "page" {
			continue
		}
		q[k] = v
	}
	encoded := q.Encode()
	if encoded != "" {
		encoded += "&"
	}
	return Pager{Pagination: p, Query: template.URL(encoded)}
}

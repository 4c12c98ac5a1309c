// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package pagination translates between the portal's 1-indexed page links and
// the REST API's 0-indexed "page"/"size" query parameters.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 10
	// MaxLimit caps page size so one page view cannot pull a whole collection.
	MaxLimit = 100
	// DefaultPage is the first page (1-indexed).
	DefaultPage = 1
)

// Params is a page request as the portal sees it.
type Params struct {
	Page  int
	Limit int
}

// Offset returns how many items precede this page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// APIQuery renders the REST API form: zero-based "page" and "size".
func (p Params) APIQuery() url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(max(p.Page-1, 0)))
	query.Set("size", strconv.Itoa(p.Limit))
	return query
}

// Meta describes one page of results for templates.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta derives TotalPages from total and limit.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (m Meta) HasPrev() bool { return m.Page > 1 }

// HasNext reports whether a following page exists.
func (m Meta) HasNext() bool { return m.Page < m.TotalPages }

// FromRequest parses "page" and "limit" from the query string, clamping
// invalid values to the defaults.
func FromRequest(r *http.Request) Params {
	page := parseIntParam(r, "page", DefaultPage)
	limit := parseIntParam(r, "limit", DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	return Params{Page: page, Limit: limit}
}

func parseIntParam(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}

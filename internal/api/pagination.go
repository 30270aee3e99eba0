package api

import (
	"net/http" // Request inspection
	"net/url"  // URL building
	"strconv"  // String conversion
	"strings"  // Header normalisation

	"github.com/gin-gonic/gin" // Gin web framework
)

// MaxPageSize caps the limit query parameter
const MaxPageSize = 100

// Pagination is a limit/offset window over a list endpoint
type Pagination struct {
	Limit  int
	Offset int
}

// Page is the envelope returned by every list endpoint
type Page[T any] struct {
	Count    int64   `json:"count"`    // Total matching records
	Next     *string `json:"next"`     // URL of the next window, null on the last one
	Previous *string `json:"previous"` // URL of the previous window, null on the first one
	Results  []T     `json:"results"`  // Records in this window
}

// parsePagination reads limit and offset; invalid values fall back to the defaults
func parsePagination(c *gin.Context, defaultLimit int) Pagination {
	p := Pagination{Limit: defaultLimit}
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = 10
	}
	if l := c.Query("limit"); l != "" {
		// If valid, set limit within bounds
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			p.Limit = min(v, MaxPageSize)
		}
	}
	if o := c.Query("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			p.Offset = v
		}
	}
	return p
}

// newPage builds the envelope with absolute next/previous links
func newPage[T any](c *gin.Context, p Pagination, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{} // Render an empty list rather than null
	}
	page := Page[T]{Count: count, Results: results}
	if int64(p.Offset+p.Limit) < count {
		next := pageURL(c.Request, p.Limit, p.Offset+p.Limit)
		page.Next = &next
	}
	if p.Offset > 0 {
		prev := pageURL(c.Request, p.Limit, max(p.Offset-p.Limit, 0))
		page.Previous = &prev
	}
	return page
}

// pageURL rewrites the request URL with the given window, keeping other query params
func pageURL(r *http.Request, limit, offset int) string {
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u := url.URL{Scheme: requestScheme(r), Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// requestScheme is the scheme the client used; X-Forwarded-Proto is honoured only for http and https
func requestScheme(r *http.Request) string {
	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

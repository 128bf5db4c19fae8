// Package pagination models page/limit list requests and a pager that
// keeps overlapping loads from clobbering each other.
package pagination

import (
	"net/url"
	"strconv"
)

// DefaultLimit is used when a request carries no positive limit.
const DefaultLimit = 20

// Request addresses one page. Pages are 1-based.
type Request struct {
	Page  int
	Limit int
}

// Normalize clamps Page to at least 1 and defaults Limit.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Query renders the request as page/limit query parameters.
func (r Request) Query() url.Values {
	r = r.Normalize()
	return url.Values{
		"page":  {strconv.Itoa(r.Page)},
		"limit": {strconv.Itoa(r.Limit)},
	}
}

// HasMoreHeuristic guesses whether another page exists from the size of the
// current one. The backend returns no totals or cursors, so a full page is
// taken to mean "maybe more". A final page that happens to be exactly full
// over-reports.
func HasMoreHeuristic(returned, limit int) bool {
	return limit > 0 && returned >= limit
}

// Page is one loaded page.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	// HasMore is true when another page may exist.
	HasMore bool
	// HasMoreApproximate is true when HasMore came from HasMoreHeuristic.
	HasMoreApproximate bool
}

// FromItems wraps items fetched for req, inferring HasMore.
func FromItems[T any](items []T, req Request) Page[T] {
	req = req.Normalize()
	return Page[T]{
		Items:              items,
		Page:               req.Page,
		Limit:              req.Limit,
		HasMore:            HasMoreHeuristic(len(items), req.Limit),
		HasMoreApproximate: true,
	}
}

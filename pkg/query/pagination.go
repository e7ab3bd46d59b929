package query

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25

	// MaxPage and MaxLimit keep page*limit within int64.
	MaxPage  = math.MaxInt32
	MaxLimit = math.MaxInt32
)

type Page struct {
	Number int
	Limit  int
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Current PageRef  `json:"current"`
	Next    *PageRef `json:"next,omitempty"`
	Prev    *PageRef `json:"prev,omitempty"`
}

// NewPage normalizes page and limit: page below 1 becomes 1, a non-positive
// limit becomes DefaultLimit. Both are capped at MaxPage and MaxLimit.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: page, Limit: limit}
}

// ParsePage reads page and limit from raw parameters, falling back to the
// defaults on anything that is not an integer.
func ParsePage(raw url.Values) Page {
	return NewPage(atoiOr(raw.Get(KeyPage), DefaultPage), atoiOr(raw.Get(KeyLimit), DefaultLimit))
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func (p Page) WithMaxLimit(max int) Page {
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

func (p Page) Offset() int64 {
	return int64(p.Number-1) * int64(p.Limit)
}

// Navigate builds the navigation descriptor for a query matching total rows.
func (p Page) Navigate(total int64) Pagination {
	nav := Pagination{Current: PageRef{Page: p.Number, Limit: p.Limit}}
	if int64(p.Number)*int64(p.Limit) < total {
		nav.Next = &PageRef{Page: p.Number + 1, Limit: p.Limit}
	}
	if p.Offset() > 0 {
		nav.Prev = &PageRef{Page: p.Number - 1, Limit: p.Limit}
	}
	return nav
}

// Result is one page of a listing.
type Result[T any] struct {
	Items      []T
	Total      int64
	Pagination Pagination
}

func (r *Result[T]) Count() int {
	return len(r.Items)
}

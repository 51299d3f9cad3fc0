// Package pagination normalizes page/limit query parameters.
package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps Offset far from overflow for any page a client sends.
	MaxPage = 100000
)

// Params is a normalized page request. Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// New clamps page to [1, MaxPage] and limit to [1, MaxLimit], using
// DefaultLimit for 0.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
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
	return Params{Page: page, Limit: limit}
}

// Offset returns the SQL OFFSET for the page. Params built by hand are
// clamped the same way New clamps them.
func (p Params) Offset() int {
	n := New(p.Page, p.Limit)
	return (n.Page - 1) * n.Limit
}

// TotalPages returns the number of pages needed for total items.
func (p Params) TotalPages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

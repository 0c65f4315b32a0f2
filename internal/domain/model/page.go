package model

// Page is one page of a paginated query.
type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	TotalPages int
	Total      int64
}

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
)

// Pagination normalizes page/limit and exposes the SQL offset.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to [1, MaxPageLimit].
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

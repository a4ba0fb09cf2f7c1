package utils

import "github.com/yukikurage/tasktide/internal/constants"

// Pagination is a limit/offset window over a listing.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NormalizePagination fills in defaults: a non-positive limit becomes the
// default page size, a limit above the cap is clamped and a negative
// offset becomes zero.
func NormalizePagination(p Pagination) Pagination {
	if p.Limit <= 0 {
		p.Limit = constants.DefaultPageLimit
	}
	if p.Limit > constants.MaxPageLimit {
		p.Limit = constants.MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

package catalog

import "github.com/WessleyAI/wessley-marketplace/engine/domain"

// DefaultPageSizes are the allowed items-per-page values when a profile does
// not declare its own.
var DefaultPageSizes = []int{12, 24, 48, 96}

// Pagination describes the page currently shown.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
}

// Page is one slice of the ordered result.
type Page struct {
	Items []domain.Vehicle `json:"items"`
	Pagination
}

// TotalPages is ceil(n/size), never less than 1.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage clamps page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	return max(1, min(page, totalPages))
}

// ClampPageSize maps n to the nearest allowed size, preferring the smaller
// one on a tie. With no allowed sizes any positive n is kept.
func ClampPageSize(n int, allowed []int) int {
	if len(allowed) == 0 {
		if n > 0 {
			return n
		}
		return DefaultPageSizes[0]
	}
	best := allowed[0]
	for _, a := range allowed[1:] {
		da, db := absInt(a-n), absInt(best-n)
		if da < db || (da == db && a < best) {
			best = a
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Paginate slices records for the requested page after clamping it.
func Paginate(records []domain.Vehicle, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSizes[0]
	}
	total := TotalPages(len(records), size)
	page = ClampPage(page, total)
	start := min((page-1)*size, len(records))
	end := min(start+size, len(records))
	return Page{
		Items: records[start:end:end],
		Pagination: Pagination{
			CurrentPage:  page,
			ItemsPerPage: size,
			TotalPages:   total,
			TotalItems:   len(records),
		},
	}
}

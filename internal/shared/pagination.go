package shared

import "math"

const (
	// DefaultPerPage applies when a listing omits its limit.
	DefaultPerPage = 20
	// MaxPerPage caps list requests.
	MaxPerPage = 100
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = NormalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// NormalizePage clamps page and perPage into their accepted ranges.
func NormalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}

// Offset returns the row offset for page.
func Offset(page, perPage int) int {
	page, perPage = NormalizePage(page, perPage)
	return (page - 1) * perPage
}

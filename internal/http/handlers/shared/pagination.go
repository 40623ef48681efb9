package shared

import "github.com/anime-alley/storefront/internal/http/response"

// NormalizePagination clamps page to >= 1 and pageSize to 1..100 (default 20).
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// CatalogPage describes one page of a gateway listing. The gateway may echo a
// different page size than requested, so total pages follow what it applied.
func CatalogPage(page, pageSize, total int) response.Pagination {
	if total < 0 {
		total = 0
	}
	p := response.Pagination{
		Page:     page,
		PageSize: pageSize,
		Total:    int64(total),
	}
	if pageSize > 0 {
		p.TotalPage = (p.Total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

package store

// Audit log pages default to 20 entries and never exceed 100.
const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
)

// PaginationParams selects one page of a project's audit trail.
type PaginationParams struct {
	Page     int // 1-indexed
	PageSize int
	Search   string // matched against action and resource name
}

// PaginationResult describes where a page of audit entries sits in the trail.
type PaginationResult struct {
	Total       int64
	TotalPages  int
	CurrentPage int
	PageSize    int
	HasPrev     bool
	HasNext     bool
}

// NewPaginationParams clamps page and pageSize into the accepted range.
func NewPaginationParams(page, pageSize int, search string) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxAuditPageSize {
		pageSize = defaultAuditPageSize
	}
	return PaginationParams{Page: page, PageSize: pageSize, Search: search}
}

// offset is the number of audit entries before the requested page.
func (p PaginationParams) offset() int {
	return (p.Page - 1) * p.PageSize
}

// CalculatePagination derives page metadata from the matching entry count.
// A page past the end is pulled back to the last page.
func CalculatePagination(total int64, currentPage, pageSize int) PaginationResult {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	currentPage = max(currentPage, 1)
	if totalPages > 0 {
		currentPage = min(currentPage, totalPages)
	}

	return PaginationResult{
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		PageSize:    pageSize,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
}

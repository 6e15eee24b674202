// Package pager slices an ordered view into fixed-size pages.
package pager

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 12

// Page is one slice of an ordered view.
type Page[T any] struct {
	Items      []T `json:"items" yaml:"items"`
	Page       int `json:"page" yaml:"page"`
	PageSize   int `json:"page_size" yaml:"page_size"`
	TotalPages int `json:"total_pages" yaml:"total_pages"`
	Total      int `json:"total" yaml:"total"`
}

// TotalPages returns ceil(count/pageSize), never less than 1.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// Paginate returns the 1-based page of items. The page number is trusted:
// a page past the end yields no items, and pages below 1 are treated as 1.
func Paginate[T any](items []T, pageSize, page int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	p := Page[T]{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(len(items), pageSize),
		Total:      len(items),
		Items:      []T{},
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return p
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	p.Items = items[start:end]
	return p
}

// Clamp keeps page within [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

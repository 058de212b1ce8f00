package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest selects a 1-based page of a listing
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps page and size into their valid ranges
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	switch {
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	case p.Size <= 0:
		p.Size = DefaultPageSize
	}
	return p
}

// Offset returns the number of rows preceding the page
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Size
}

// Page is one page of an ordered listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalRows  int64 `json:"total_rows"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// NewPage assembles a page from the selected items and the total row count
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return Page[T]{
		Items:      items,
		TotalRows:  total,
		TotalPages: pages,
		Page:       req.Page,
		PageSize:   req.Size,
	}
}

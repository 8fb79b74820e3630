// Package pagination binds page query parameters and applies them to gorm
// queries.
package pagination

import "gorm.io/gorm"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination is bound from ?page=&page_size=.
type Pagination struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// New returns the first page at the default size.
func New() *Pagination {
	return &Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
}

func (p *Pagination) page() int {
	if p.Page < 1 {
		return DefaultPage
	}
	return p.Page
}

// Limit returns the page size clamped to [1, MaxPageSize].
func (p *Pagination) Limit() int {
	switch {
	case p.PageSize < 1:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Offset returns the number of rows before the page.
func (p *Pagination) Offset() int {
	return (p.page() - 1) * p.Limit()
}

// Scope applies the page to a query: db.Scopes(page.Scope()).
func (p *Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit())
	}
}

// PageInfo is the page block of a list response.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Info describes the page against total matching rows.
func (p *Pagination) Info(total int64) PageInfo {
	size := p.Limit()
	return PageInfo{
		Page:       p.page(),
		PageSize:   size,
		Total:      total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}
}

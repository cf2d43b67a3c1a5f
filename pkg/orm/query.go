// Package orm holds query helpers shared by the repositories.
package orm

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Normalize clamps page and perPage to sane bounds.
func Normalize(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Paginate counts the rows matched by q, then loads one page into dest.
// q must already carry its Model and Where clauses. Ordering and scopes
// (typically Preloads) are applied to the page query only.
func Paginate(q *gorm.DB, page, perPage int, order string, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (Pagination, error) {
	page, perPage = Normalize(page, perPage)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	pq := q.Session(&gorm.Session{}).Scopes(scopes...)
	if order != "" {
		pq = pq.Order(order)
	}
	if err := pq.Offset((page - 1) * perPage).Limit(perPage).Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product belongs to exactly one shop and has an ordered list of variants.
type Product struct {
	Base
	ShopID       string         `gorm:"size:36;not null;index" json:"shop_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Category     string         `gorm:"size:64;index" json:"category"`
	Brand        string         `gorm:"size:128" json:"brand,omitempty"`
	Active       bool           `gorm:"not null" json:"active"`
	Rating       float64        `gorm:"not null" json:"rating"`
	TotalReviews int            `gorm:"not null" json:"total_reviews"`
	Variants     []Variant      `gorm:"foreignKey:ProductID" json:"variants"`
	Images       []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
}

// DefaultVariant is the first active variant by position.
func (p *Product) DefaultVariant() (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Active {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Variant returns the variant with id.
func (p *Product) Variant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Variant is a purchasable configuration of a product.
type Variant struct {
	Base
	ProductID string          `gorm:"size:36;not null;index" json:"product_id"`
	Position  int             `gorm:"not null" json:"position"`
	Name      string          `gorm:"size:128" json:"name"`
	SKU       string          `gorm:"size:64;index" json:"sku"`
	MRP       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"mrp"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null" json:"stock"`
	Active    bool            `gorm:"not null" json:"active"`
}

// ProductImage points at an object on the configured storage disk.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID string    `gorm:"size:36;not null;index" json:"product_id"`
	Path      string    `gorm:"size:512;not null" json:"path"`
	URL       string    `gorm:"size:1024" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how an offer's value is applied.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// OfferScope is whether an offer targets one product or a whole shop.
type OfferScope string

const (
	ScopeProduct OfferScope = "product"
	ScopeShop    OfferScope = "shop"
)

// Offer is a time-bounded discount owned by a shop. A nil ProductID makes it
// apply to every product of the shop.
type Offer struct {
	Base
	ShopID       string          `gorm:"size:36;not null;index" json:"shop_id"`
	ProductID    *string         `gorm:"size:36;index" json:"product_id,omitempty"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	DiscountType DiscountType    `gorm:"size:16;not null" json:"discount_type"`
	Value        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	Active       bool            `gorm:"not null" json:"active"`
	ValidFrom    time.Time       `gorm:"not null" json:"valid_from"`
	ValidTill    time.Time       `gorm:"not null" json:"valid_till"`
	UsageCount   int             `gorm:"not null" json:"usage_count"`
}

// Scope derives the offer's scope from ProductID.
func (o *Offer) Scope() OfferScope {
	if o.ProductID != nil && *o.ProductID != "" {
		return ScopeProduct
	}
	return ScopeShop
}

// InEffect reports whether the offer applies at t. Both window ends are inclusive.
func (o *Offer) InEffect(t time.Time) bool {
	return o.Active && !t.Before(o.ValidFrom) && !t.After(o.ValidTill)
}

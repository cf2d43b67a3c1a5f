package models

import "github.com/shopspring/decimal"

// ShopStatus is the admin approval state of a shop.
type ShopStatus string

const (
	ShopPending   ShopStatus = "pending"
	ShopApproved  ShopStatus = "approved"
	ShopRejected  ShopStatus = "rejected"
	ShopSuspended ShopStatus = "suspended"
)

func (s ShopStatus) Valid() bool {
	switch s {
	case ShopPending, ShopApproved, ShopRejected, ShopSuspended:
		return true
	}
	return false
}

// Shop is owned by exactly one merchant and visible to customers once approved.
type Shop struct {
	Base
	OwnerID         string          `gorm:"size:36;not null;index" json:"owner_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Category        string          `gorm:"size:64;index" json:"category"`
	Address         string          `gorm:"size:512" json:"address"`
	Phone           string          `gorm:"size:32" json:"phone"`
	Status          ShopStatus      `gorm:"size:16;not null;index" json:"status"`
	StatusReason    string          `gorm:"size:255" json:"status_reason,omitempty"`
	IsOpen          bool            `gorm:"not null" json:"is_open"`
	AcceptingOrders bool            `gorm:"not null" json:"accepting_orders"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_fee"`
	MinimumOrder    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"minimum_order"`
	Rating          float64         `gorm:"not null" json:"rating"`
	TotalReviews    int             `gorm:"not null" json:"total_reviews"`
}

// Orderable reports whether customers can order right now.
func (s *Shop) Orderable() bool {
	return s.IsOpen && s.AcceptingOrders
}

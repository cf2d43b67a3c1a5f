package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "placed"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []OrderStatus{
	StatusPlaced, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type DeliveryType string

const (
	DeliveryHome   DeliveryType = "delivery"
	DeliveryPickup DeliveryType = "pickup"
)

// PaymentCOD is the only supported payment method.
const PaymentCOD = "cod"

// Order is a customer's purchase from a single shop. Prices and discounts
// on its items are copies taken at creation and never recomputed.
type Order struct {
	Base
	Number          string          `gorm:"size:20;not null;uniqueIndex" json:"number"`
	CustomerID      string          `gorm:"size:36;not null;index" json:"customer_id"`
	ShopID          string          `gorm:"size:36;not null;index" json:"shop_id"`
	Status          OrderStatus     `gorm:"size:24;not null;index" json:"status"`
	Version         int64           `gorm:"not null" json:"version"`
	PaymentMethod   string          `gorm:"size:16;not null" json:"payment_method"`
	DeliveryType    DeliveryType    `gorm:"size:16;not null" json:"delivery_type"`
	DeliveryAddress string          `gorm:"size:512" json:"delivery_address,omitempty"`
	CustomerNotes   string          `gorm:"size:1024" json:"customer_notes,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_total"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_fee"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	StatusChangedAt time.Time       `gorm:"not null" json:"status_changed_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
}

// ContainsProduct reports whether productID is among the order's items.
func (o *Order) ContainsProduct(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderItem is one frozen line of an order.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID     string          `gorm:"size:36;not null;index" json:"-"`
	Position    int             `gorm:"not null" json:"position"`
	ProductID   string          `gorm:"size:36;not null;index" json:"product_id"`
	VariantID   string          `gorm:"size:36;not null" json:"variant_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	VariantName string          `gorm:"size:128" json:"variant_name,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	OfferID     *string         `gorm:"size:36" json:"offer_id,omitempty"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
}

// OrderStatusEvent is one applied transition. The table is append-only.
type OrderStatusEvent struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string      `gorm:"size:36;not null;index" json:"order_id"`
	From      OrderStatus `gorm:"size:24" json:"from,omitempty"`
	To        OrderStatus `gorm:"size:24;not null" json:"to"`
	ActorID   string      `gorm:"size:36;not null" json:"actor_id"`
	Version   int64       `gorm:"not null" json:"version"`
	CreatedAt time.Time   `json:"created_at"`
}

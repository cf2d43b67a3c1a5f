package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every UUID-keyed model.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Shop{},
		&Product{},
		&Variant{},
		&ProductImage{},
		&Offer{},
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
		&Review{},
	}
}

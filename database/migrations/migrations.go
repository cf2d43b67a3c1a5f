// Package migrations holds the schema history. Each migration registers
// itself from init(); importing this package for side effects is enough to
// make them visible to migration.New.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_users", tables{&models.User{}})
	migration.Register("20260301000100_create_catalog", tables{
		&models.Shop{}, &models.Product{}, &models.Variant{}, &models.ProductImage{}, &models.Offer{},
	})
	migration.Register("20260301000200_create_orders", tables{
		&models.Order{}, &models.OrderItem{}, &models.OrderStatusEvent{},
	})
	migration.Register("20260301000300_create_reviews", tables{&models.Review{}})
}

// tables creates its models on Up and drops them in reverse on Down.
type tables []any

func (t tables) Up(db *gorm.DB) error {
	return db.AutoMigrate(t...)
}

func (t tables) Down(db *gorm.DB) error {
	for i := len(t) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(t[i]); err != nil {
			return err
		}
	}
	return nil
}

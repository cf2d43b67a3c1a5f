package seeders

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
)

const demoAdminEmail = "admin@shopkart.test"

func init() {
	Register("demo", SeedDemo)
}

// SeedDemo inserts an admin, a merchant with an approved shop holding two
// products and a shop-wide offer, and a customer. It does nothing when the
// demo admin already exists.
func SeedDemo(db *gorm.DB) error {
	var existing models.User
	err := db.Where("email = ?", demoAdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := demoUser("demo-admin", "Asha Admin", demoAdminEmail, models.RoleAdmin)
		merchant := demoUser("demo-merchant", "Mohan Merchant", "merchant@shopkart.test", models.RoleMerchant)
		customer := demoUser("demo-customer", "Chitra Customer", "customer@shopkart.test", models.RoleCustomer)
		for _, u := range []*models.User{admin, merchant, customer} {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
		}

		shop := &models.Shop{
			OwnerID:         merchant.ID,
			Name:            "Mohan Fresh Mart",
			Description:     "Fruit, vegetables and daily staples.",
			Category:        "grocery",
			Address:         "12 Market Road",
			Phone:           "+91 98450 00000",
			Status:          models.ShopApproved,
			IsOpen:          true,
			AcceptingOrders: true,
			DeliveryFee:     decimal.NewFromInt(30),
			MinimumOrder:    decimal.NewFromInt(100),
		}
		if err := tx.Create(shop).Error; err != nil {
			return fmt.Errorf("shop: %w", err)
		}

		products := []*models.Product{
			demoProduct(shop.ID, "Alphonso Mango", "fruit", 120, 150, 40),
			demoProduct(shop.ID, "Basmati Rice 5kg", "staples", 540, 600, 25),
		}
		for _, p := range products {
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("product %s: %w", p.Name, err)
			}
		}

		now := time.Now().UTC()
		offer := &models.Offer{
			ShopID:       shop.ID,
			Name:         "Opening week",
			Description:  "10% off everything.",
			DiscountType: models.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Active:       true,
			ValidFrom:    now,
			ValidTill:    now.AddDate(0, 0, 7),
		}
		if err := tx.Create(offer).Error; err != nil {
			return fmt.Errorf("offer: %w", err)
		}
		return nil
	})
}

func demoUser(externalID, name, email string, role models.Role) *models.User {
	return &models.User{
		ExternalID: externalID,
		Name:       name,
		Email:      email,
		Roles:      models.NewRoleSet(string(role)),
		Active:     true,
	}
}

func demoProduct(shopID, name, category string, price, mrp int64, stock int) *models.Product {
	return &models.Product{
		ShopID:   shopID,
		Name:     name,
		Category: category,
		Active:   true,
		Variants: []models.Variant{{
			Name:   "default",
			SKU:    fmt.Sprintf("%s-%d", category, price),
			MRP:    decimal.NewFromInt(mrp),
			Price:  decimal.NewFromInt(price),
			Stock:  stock,
			Active: true,
		}},
	}
}

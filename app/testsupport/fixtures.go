package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

// Money parses a decimal literal, failing the test on bad input.
func Money(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// RequireMoney asserts that got equals the decimal literal want.
func RequireMoney(t testing.TB, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, Money(t, want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// User inserts an active user holding roles.
func User(t testing.TB, db *gorm.DB, roles ...models.Role) *models.User {
	t.Helper()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	id := uuid.NewString()
	u := &models.User{
		ExternalID: "ext-" + id,
		Name:       "user " + id[:8],
		Email:      id[:8] + "@example.com",
		Roles:      models.NewRoleSet(names...),
		Active:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Principal builds the request principal for u. Merchants get their shops.
func Principal(u *models.User, shopIDs ...string) *auth.Principal {
	return &auth.Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles.Strings(), ShopIDs: shopIDs}
}

// Shop inserts an approved, open shop with no fee or minimum. Options
// adjust it before insert.
func Shop(t testing.TB, db *gorm.DB, ownerID string, opts ...func(*models.Shop)) *models.Shop {
	t.Helper()
	s := &models.Shop{
		OwnerID:         ownerID,
		Name:            "Corner Store",
		Category:        "grocery",
		Status:          models.ShopApproved,
		IsOpen:          true,
		AcceptingOrders: true,
		DeliveryFee:     decimal.Zero,
		MinimumOrder:    decimal.Zero,
	}
	for _, o := range opts {
		o(s)
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

// Product inserts an active product with one variant at price and stock.
func Product(t testing.TB, db *gorm.DB, shopID, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		ShopID: shopID,
		Name:   name,
		Active: true,
		Variants: []models.Variant{{
			Name:   "default",
			SKU:    name + "-1",
			MRP:    Money(t, price),
			Price:  Money(t, price),
			Stock:  stock,
			Active: true,
		}},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Offer inserts an active offer valid for an hour either side of now. A
// nil productID makes it shop-wide.
func Offer(t testing.TB, db *gorm.DB, shopID string, productID *string, kind models.DiscountType, value string, opts ...func(*models.Offer)) *models.Offer {
	t.Helper()
	now := time.Now().UTC()
	o := &models.Offer{
		ShopID:       shopID,
		ProductID:    productID,
		Name:         string(kind) + " " + value,
		DiscountType: kind,
		Value:        Money(t, value),
		Active:       true,
		ValidFrom:    now.Add(-time.Hour),
		ValidTill:    now.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(o)
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

// Stock reads a variant's current stock.
func Stock(t testing.TB, db *gorm.DB, variantID string) int {
	t.Helper()
	var v models.Variant
	require.NoError(t, db.WithContext(context.Background()).Where("id = ?", variantID).First(&v).Error)
	return v.Stock
}

// Count returns the number of rows of model.
func Count(t testing.TB, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

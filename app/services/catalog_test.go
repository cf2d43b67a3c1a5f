package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
)

type catalogFixture struct {
	db       *gorm.DB
	svc      *CatalogService
	root     string
	merchant *auth.Principal
	customer *auth.Principal
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := testsupport.NewDB(t)
	root := t.TempDir()
	disk, err := storage.NewLocal(root, "http://cdn.test/files")
	require.NoError(t, err)
	return &catalogFixture{
		db:       db,
		svc:      NewCatalogService(repositories.NewStore(db), disk),
		root:     root,
		merchant: testsupport.Principal(testsupport.User(t, db, models.RoleMerchant)),
		customer: testsupport.Principal(testsupport.User(t, db, models.RoleCustomer)),
	}
}

func TestShopApprovalGatesVisibility(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateShop(ctx, f.customer, ShopInput{Name: "Nope"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	shop, err := f.svc.CreateShop(ctx, f.merchant, ShopInput{Name: " Bakery ", Category: "Food", DeliveryFee: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, "Bakery", shop.Name)
	assert.Equal(t, "food", shop.Category)
	assert.Equal(t, models.ShopPending, shop.Status)
	assert.False(t, shop.Orderable())

	_, err = f.svc.GetShop(ctx, shop.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.GetShop(ctx, shop.ID, f.merchant)
	require.NoError(t, err)

	listed, _, err := f.svc.ListShops(ctx, ShopQuery{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = f.svc.SetApproval(ctx, shop.ID, models.ShopApproved, "")
	require.NoError(t, err)
	detail, err := f.svc.GetShop(ctx, shop.ID, f.customer)
	require.NoError(t, err)
	assert.Equal(t, models.ShopApproved, detail.Status)

	listed, _, err = f.svc.ListShops(ctx, ShopQuery{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.svc.SetApproval(ctx, shop.ID, "closed-forever", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSetHoursOnlyForManager(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)

	closed := false
	_, err := f.svc.SetHours(ctx, f.customer, shop.ID, ShopHoursInput{IsOpen: &closed})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := f.svc.SetHours(ctx, f.merchant, shop.ID, ShopHoursInput{IsOpen: &closed})
	require.NoError(t, err)
	assert.False(t, updated.IsOpen)
	assert.True(t, updated.AcceptingOrders)

	var stored models.Shop
	require.NoError(t, f.db.First(&stored, "id = ?", shop.ID).Error)
	assert.False(t, stored.Orderable())
}

func TestProductsHideInactiveFromCustomers(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)

	_, err := f.svc.CreateProduct(ctx, f.merchant, shop.ID, ProductInput{Name: "Tea"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	inactive := false
	hidden, err := f.svc.CreateProduct(ctx, f.merchant, shop.ID, ProductInput{
		Name:     "Tea",
		Active:   &inactive,
		Variants: []VariantInput{{Name: "250g", Price: decimal.NewFromInt(80), Stock: 3}},
	})
	require.NoError(t, err)
	require.Len(t, hidden.Variants, 1)
	testsupport.RequireMoney(t, "80", hidden.Variants[0].MRP)

	shown, err := f.svc.CreateProduct(ctx, f.merchant, shop.ID, ProductInput{
		Name:     "Coffee",
		Variants: []VariantInput{{Name: "500g", Price: decimal.NewFromInt(300), Stock: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.GetProduct(ctx, hidden.ID, f.customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.GetProduct(ctx, hidden.ID, f.merchant)
	require.NoError(t, err)

	public, _, err := f.svc.ListProducts(ctx, shop.ID, f.customer, ProductQuery{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, shown.ID, public[0].ID)

	all, _, err := f.svc.ListProducts(ctx, shop.ID, f.merchant, ProductQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOfferValidation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	other := testsupport.Shop(t, f.db, f.merchant.UserID)
	foreign := testsupport.Product(t, f.db, other.ID, "salt", "10", 1)
	now := time.Now().UTC()

	cases := map[string]OfferInput{
		"value": {Name: "too much", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(150), ValidTill: now.Add(time.Hour)},
		"valid_till": {Name: "backwards", DiscountType: models.DiscountFixedAmount, Value: decimal.NewFromInt(5),
			ValidFrom: now, ValidTill: now.Add(-time.Hour)},
		"product_id": {Name: "elsewhere", ProductID: &foreign.ID, DiscountType: models.DiscountFixedAmount,
			Value: decimal.NewFromInt(5), ValidTill: now.Add(time.Hour)},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := f.svc.CreateOffer(ctx, f.merchant, shop.ID, in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, field)
		})
	}

	_, err := f.svc.CreateOffer(ctx, f.customer, shop.ID, OfferInput{Name: "x", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCurrentOffersOrdering(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	p := testsupport.Product(t, f.db, shop.ID, "rice", "50", 10)

	testsupport.Offer(t, f.db, shop.ID, nil, models.DiscountPercentage, "30")
	testsupport.Offer(t, f.db, shop.ID, &p.ID, models.DiscountPercentage, "5")
	testsupport.Offer(t, f.db, shop.ID, nil, models.DiscountPercentage, "50", func(o *models.Offer) {
		o.ValidTill = time.Now().UTC().Add(-time.Minute)
	})

	offers, err := f.svc.CurrentOffers(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, models.ScopeProduct, offers[0].Scope())
	testsupport.RequireMoney(t, "30", offers[1].Value)

	all, err := f.svc.ListOffers(ctx, f.merchant, shop.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAddImageStoresOnDisk(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	p := testsupport.Product(t, f.db, shop.ID, "jam", "70", 2)

	_, err := f.svc.AddImage(ctx, f.merchant, p.ID, "application/pdf", bytes.NewReader([]byte("%PDF")))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.AddImage(ctx, f.customer, p.ID, "image/png", bytes.NewReader([]byte("png")))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	img, err := f.svc.AddImage(ctx, f.merchant, p.ID, "image/png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	assert.Regexp(t, `^products/`+p.ID+`/[0-9a-f-]{36}\.png$`, img.Path)
	assert.Equal(t, "http://cdn.test/files/"+img.Path, img.URL)

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(img.Path)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestUpdateOfferKeepsStartWhenOmitted(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	offer := testsupport.Offer(t, f.db, shop.ID, nil, models.DiscountPercentage, "10")
	till := offer.ValidTill.Add(24 * time.Hour)

	updated, err := f.svc.UpdateOffer(ctx, f.merchant, offer.ID, OfferInput{
		Name:         "longer",
		DiscountType: models.DiscountPercentage,
		Value:        decimal.NewFromInt(15),
		ValidTill:    till,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, offer.ValidFrom, updated.ValidFrom, time.Second)
	assert.WithinDuration(t, till, updated.ValidTill, time.Second)
	testsupport.RequireMoney(t, "15", updated.Value)

	start := offer.ValidFrom.Add(30 * time.Minute)
	moved, err := f.svc.UpdateOffer(ctx, f.merchant, offer.ID, OfferInput{
		Name:         "later",
		DiscountType: models.DiscountPercentage,
		Value:        decimal.NewFromInt(15),
		ValidFrom:    start,
		ValidTill:    till,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, start, moved.ValidFrom, time.Second)
}

func TestDeleteOffer(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	offer := testsupport.Offer(t, f.db, shop.ID, nil, models.DiscountFixedAmount, "5")

	assert.ErrorIs(t, f.svc.DeleteOffer(ctx, f.customer, offer.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.DeleteOffer(ctx, f.merchant, offer.ID))

	all, err := f.svc.ListOffers(ctx, f.merchant, shop.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, f.svc.DeleteOffer(ctx, f.merchant, offer.ID), apperr.ErrNotFound)
}

func TestRetireProductTakesItOffSale(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	shop := testsupport.Shop(t, f.db, f.merchant.UserID)
	p := testsupport.Product(t, f.db, shop.ID, "honey", "200", 4)
	scoped := testsupport.Offer(t, f.db, shop.ID, &p.ID, models.DiscountPercentage, "10")
	shopWide := testsupport.Offer(t, f.db, shop.ID, nil, models.DiscountPercentage, "5")

	_, err := f.svc.RetireProduct(ctx, f.customer, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	retired, err := f.svc.RetireProduct(ctx, f.merchant, p.ID)
	require.NoError(t, err)
	assert.False(t, retired.Active)

	_, err = f.svc.GetProduct(ctx, p.ID, f.customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualValues(t, 1, testsupport.Count(t, f.db, &models.Product{}))

	offers, err := f.svc.CurrentOffers(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, shopWide.ID, offers[0].ID)

	var stored models.Offer
	require.NoError(t, f.db.First(&stored, "id = ?", scoped.ID).Error)
	assert.False(t, stored.Active)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
)

func TestDashboardsCountDeliveredRevenue(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.deliver(t, f.place(t))
	f.place(t)

	dash := NewDashboardService(repositories.NewStore(f.db))

	m, err := dash.Merchant(ctx, f.merchant)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Shops)
	assert.EqualValues(t, 2, m.Products)
	assert.EqualValues(t, 1, m.OrdersByStatus[models.StatusDelivered])
	assert.EqualValues(t, 1, m.OrdersByStatus[models.StatusPlaced])
	testsupport.RequireMoney(t, "240", m.Revenue)
	require.Contains(t, m.PerShop, f.shop.ID)
	assert.EqualValues(t, 2, m.PerShop[f.shop.ID].Orders)

	a, err := dash.Admin(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.UsersByRole[models.RoleCustomer])
	assert.EqualValues(t, 1, a.UsersByRole[models.RoleMerchant])
	assert.EqualValues(t, 1, a.ShopsByStatus[models.ShopApproved])
	testsupport.RequireMoney(t, "240", a.Revenue)
	assert.Zero(t, a.PendingReviews)
}

func TestMerchantDashboardWithoutShops(t *testing.T) {
	db := testsupport.NewDB(t)
	dash := NewDashboardService(repositories.NewStore(db))
	u := testsupport.User(t, db, models.RoleMerchant)

	m, err := dash.Merchant(context.Background(), testsupport.Principal(u))
	require.NoError(t, err)
	assert.Zero(t, m.Shops)
	assert.Zero(t, m.OrdersByStatus[models.StatusPlaced])
	assert.True(t, m.Revenue.IsZero())
}

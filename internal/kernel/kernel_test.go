package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/internal/kernel"
	"github.com/shashiranjanraj/shopkart/pkg/app"
	"github.com/shashiranjanraj/shopkart/pkg/audit"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
	"github.com/shashiranjanraj/shopkart/pkg/testkit"
)

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := auth.IssueToken(u.ID, u.Email)
	require.NoError(t, err)
	return tok
}

func TestAPIScenarios(t *testing.T) {
	config.Set("IDP_USERINFO_URL", "https://idp.test/userinfo")
	t.Cleanup(func() { config.Unset("IDP_USERINFO_URL") })

	db := testsupport.NewDB(t)
	disk, err := storage.NewLocal(t.TempDir(), "http://cdn.test/files")
	require.NoError(t, err)
	sink := &audit.Memory{}

	k, err := kernel.New(db, kernel.Options{Disk: disk, Audit: sink})
	require.NoError(t, err)
	t.Cleanup(k.Close)

	customer := testsupport.User(t, db, models.RoleCustomer)
	merchant := testsupport.User(t, db, models.RoleMerchant)
	stranger := testsupport.User(t, db, models.RoleCustomer)
	shop := testsupport.Shop(t, db, merchant.ID)
	product := testsupport.Product(t, db, shop.ID, "apple", "120", 10)

	order, err := k.Orders.CreateOrder(context.Background(), customer.ID, services.CreateOrderInput{
		ShopID:       shop.ID,
		DeliveryType: models.DeliveryPickup,
		Lines:        []services.CartLine{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	handler := app.New().Routes(k.Routes).Health(k.Ping).Handler()
	testkit.Run(t, handler, "testdata/api.json", testkit.Vars{
		"shop":          shop.ID,
		"product":       product.ID,
		"order":         order.ID,
		"customerToken": token(t, customer),
		"merchantToken": token(t, merchant),
		"strangerToken": token(t, stranger),
	})

	// Two placements and one confirm reached the audit trail.
	var actions []string
	for _, e := range sink.Entries() {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{
		services.EventOrderPlaced, services.EventOrderPlaced, services.EventOrderTransitioned,
	}, actions)
}

func TestRouteListNeedsNoConnections(t *testing.T) {
	routes := app.New().Routes((&kernel.Kernel{}).Routes).RouteList()

	byName := map[string]string{}
	for _, r := range routes {
		byName[r.Name] = r.Method + " " + r.Path
	}
	assert.Equal(t, "POST /api/orders/{id}/transitions", byName["orders.transition"])
	assert.Equal(t, "PUT /api/admin/reviews/{id}/moderation", byName["admin.reviews.moderate"])
	assert.Equal(t, "GET /api/ws/orders", byName["ws.orders"])
	assert.Equal(t, "GET /metrics", byName["metrics"])
	assert.Equal(t, "PUT /api/reviews/{id}", byName["reviews.update"])
	assert.Equal(t, "DELETE /api/reviews/{id}", byName["reviews.destroy"])
	assert.Equal(t, "DELETE /api/merchant/offers/{id}", byName["merchant.offers.destroy"])
	assert.Equal(t, "DELETE /api/merchant/products/{id}", byName["merchant.products.retire"])
}

func TestNewRequiresADisk(t *testing.T) {
	_, err := kernel.New(testsupport.NewDB(t), kernel.Options{})
	assert.Error(t, err)
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

type recordedEvent struct {
	name    string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Fire(_ context.Context, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name, payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

type orderFixture struct {
	db       *gorm.DB
	svc      *OrderService
	events   *recorder
	customer *auth.Principal
	merchant *auth.Principal
	shop     *models.Shop
	apple    *models.Product
	bread    *models.Product
}

func newOrderFixture(t *testing.T, shopOpts ...func(*models.Shop)) *orderFixture {
	t.Helper()
	db := testsupport.NewDB(t)
	store := repositories.NewStore(db)
	events := &recorder{}

	cust := testsupport.User(t, db, models.RoleCustomer)
	owner := testsupport.User(t, db, models.RoleMerchant)
	shop := testsupport.Shop(t, db, owner.ID, shopOpts...)

	return &orderFixture{
		db:       db,
		svc:      NewOrderService(store, NewPricingService(store), events),
		events:   events,
		customer: testsupport.Principal(cust),
		merchant: testsupport.Principal(owner, shop.ID),
		shop:     shop,
		apple:    testsupport.Product(t, db, shop.ID, "apple", "120", 5),
		bread:    testsupport.Product(t, db, shop.ID, "bread", "60", 5),
	}
}

func (f *orderFixture) cart(lines ...CartLine) CreateOrderInput {
	return CreateOrderInput{ShopID: f.shop.ID, Lines: lines, DeliveryType: models.DeliveryPickup}
}

func (f *orderFixture) place(t *testing.T) *models.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), f.customer.UserID,
		f.cart(CartLine{ProductID: f.apple.ID, Quantity: 2}))
	require.NoError(t, err)
	return o
}

func (f *orderFixture) requireNothingPersisted(t *testing.T) {
	t.Helper()
	assert.Zero(t, testsupport.Count(t, f.db, &models.Order{}))
	assert.Zero(t, testsupport.Count(t, f.db, &models.OrderItem{}))
	assert.Zero(t, testsupport.Count(t, f.db, &models.OrderStatusEvent{}))
	assert.Equal(t, 5, testsupport.Stock(t, f.db, f.apple.Variants[0].ID))
	assert.Equal(t, 5, testsupport.Stock(t, f.db, f.bread.Variants[0].ID))
}

func TestCreateOrderFreezesOfferPrices(t *testing.T) {
	f := newOrderFixture(t)
	promo := testsupport.Offer(t, f.db, f.shop.ID, &f.apple.ID, models.DiscountPercentage, "20")

	o, err := f.svc.CreateOrder(context.Background(), f.customer.UserID, f.cart(
		CartLine{ProductID: f.apple.ID, Quantity: 2},
		CartLine{ProductID: f.bread.ID, Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaced, o.Status)
	assert.EqualValues(t, 1, o.Version)
	assert.Equal(t, models.PaymentCOD, o.PaymentMethod)
	assert.Regexp(t, `^ORD[0-9A-F]{10}$`, o.Number)
	testsupport.RequireMoney(t, "300", o.Subtotal)
	testsupport.RequireMoney(t, "48", o.DiscountTotal)
	testsupport.RequireMoney(t, "0", o.DeliveryFee)
	testsupport.RequireMoney(t, "252", o.Total)

	require.Len(t, o.Items, 2)
	require.NotNil(t, o.Items[0].OfferID)
	assert.Equal(t, promo.ID, *o.Items[0].OfferID)
	testsupport.RequireMoney(t, "192", o.Items[0].LineTotal)
	assert.Nil(t, o.Items[1].OfferID)

	assert.Equal(t, 3, testsupport.Stock(t, f.db, f.apple.Variants[0].ID))
	assert.Equal(t, 4, testsupport.Stock(t, f.db, f.bread.Variants[0].ID))

	var stored models.Offer
	require.NoError(t, f.db.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.UsageCount)

	events, err := f.svc.Events(context.Background(), o.ID, f.customer)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusPlaced, events[0].To)
	assert.Empty(t, events[0].From)

	assert.Equal(t, []string{EventOrderPlaced}, f.events.names())
}

func TestCreateOrderAddsDeliveryFeeForDelivery(t *testing.T) {
	f := newOrderFixture(t, func(s *models.Shop) { s.DeliveryFee = decimal.NewFromInt(30) })

	in := f.cart(CartLine{ProductID: f.bread.ID, Quantity: 1})
	in.DeliveryType = models.DeliveryHome
	in.DeliveryAddress = "12 Main Street"
	o, err := f.svc.CreateOrder(context.Background(), f.customer.UserID, in)
	require.NoError(t, err)
	testsupport.RequireMoney(t, "30", o.DeliveryFee)
	testsupport.RequireMoney(t, "90", o.Total)
	assert.Equal(t, "12 Main Street", o.DeliveryAddress)

	pickup, err := f.svc.CreateOrder(context.Background(), f.customer.UserID, f.cart(CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.NoError(t, err)
	testsupport.RequireMoney(t, "0", pickup.DeliveryFee)
	testsupport.RequireMoney(t, "60", pickup.Total)
}

func TestCreateOrderRejections(t *testing.T) {
	cases := []struct {
		name  string
		shop  func(*models.Shop)
		input func(f *orderFixture) CreateOrderInput
		want  apperr.Kind
	}{
		{
			name:  "empty cart",
			input: func(f *orderFixture) CreateOrderInput { return f.cart() },
			want:  apperr.EmptyCart,
		},
		{
			name: "zero quantity",
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 0})
			},
			want: apperr.Validation,
		},
		{
			name: "delivery without address",
			input: func(f *orderFixture) CreateOrderInput {
				in := f.cart(CartLine{ProductID: f.apple.ID, Quantity: 1})
				in.DeliveryType = models.DeliveryHome
				return in
			},
			want: apperr.Validation,
		},
		{
			name: "shop not approved",
			shop: func(s *models.Shop) { s.Status = models.ShopPending },
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 1})
			},
			want: apperr.ShopNotApproved,
		},
		{
			name: "shop closed",
			shop: func(s *models.Shop) { s.IsOpen = false },
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 1})
			},
			want: apperr.ShopClosed,
		},
		{
			name: "not accepting orders",
			shop: func(s *models.Shop) { s.AcceptingOrders = false },
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 1})
			},
			want: apperr.ShopClosed,
		},
		{
			name: "unknown product",
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 1}, CartLine{ProductID: "missing", Quantity: 1})
			},
			want: apperr.ProductNotInShop,
		},
		{
			name: "second line out of stock",
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 2}, CartLine{ProductID: f.bread.ID, Quantity: 6})
			},
			want: apperr.OutOfStock,
		},
		{
			name: "below minimum",
			shop: func(s *models.Shop) { s.MinimumOrder = decimal.NewFromInt(500) },
			input: func(f *orderFixture) CreateOrderInput {
				return f.cart(CartLine{ProductID: f.apple.ID, Quantity: 2})
			},
			want: apperr.Validation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var opts []func(*models.Shop)
			if tc.shop != nil {
				opts = append(opts, tc.shop)
			}
			f := newOrderFixture(t, opts...)

			_, err := f.svc.CreateOrder(context.Background(), f.customer.UserID, tc.input(f))
			require.Error(t, err)
			assert.Equal(t, tc.want, apperr.KindOf(err), err.Error())
			f.requireNothingPersisted(t)
			assert.Empty(t, f.events.names())
		})
	}
}

func TestCreateOrderRejectsProductFromAnotherShop(t *testing.T) {
	f := newOrderFixture(t)
	other := testsupport.Shop(t, f.db, f.merchant.UserID)
	foreign := testsupport.Product(t, f.db, other.ID, "cheese", "90", 5)

	_, err := f.svc.CreateOrder(context.Background(), f.customer.UserID, f.cart(CartLine{ProductID: foreign.ID, Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrProductNotInShop)
	assert.Equal(t, 5, testsupport.Stock(t, f.db, foreign.Variants[0].ID))
}

func TestQuoteDoesNotReserveStock(t *testing.T) {
	f := newOrderFixture(t, func(s *models.Shop) { s.MinimumOrder = decimal.NewFromInt(500) })
	testsupport.Offer(t, f.db, f.shop.ID, nil, models.DiscountFixedAmount, "10")

	q, err := f.svc.Quote(context.Background(), f.cart(CartLine{ProductID: f.apple.ID, Quantity: 2}))
	require.NoError(t, err)
	testsupport.RequireMoney(t, "240", q.Subtotal)
	testsupport.RequireMoney(t, "20", q.Discount)
	testsupport.RequireMoney(t, "220", q.Total)
	assert.False(t, q.MeetsMinimum)
	f.requireNothingPersisted(t)
}

func TestTransitionHappyPathRecordsHistory(t *testing.T) {
	f := newOrderFixture(t)
	o := f.place(t)
	ctx := context.Background()

	var err error
	for _, to := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered,
	} {
		o, err = f.svc.Transition(ctx, o.ID, f.merchant, to, o.Version)
		require.NoError(t, err, "to %s", to)
		assert.Equal(t, to, o.Status)
	}
	assert.EqualValues(t, 5, o.Version)

	history, err := f.svc.Events(ctx, o.ID, f.merchant)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].To, history[i].From)
		assert.True(t, CanFollow(history[i].From, history[i].To))
		assert.EqualValues(t, i+1, history[i].Version)
	}

	_, err = f.svc.Transition(ctx, o.ID, f.merchant, models.StatusCancelled, o.Version)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestTransitionReplayIsStale(t *testing.T) {
	f := newOrderFixture(t)
	o := f.place(t)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, o.ID, f.merchant, models.StatusConfirmed, 1)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, o.ID, f.merchant, models.StatusConfirmed, 1)
	assert.ErrorIs(t, err, apperr.ErrStaleOrderVersion)
	assert.True(t, apperr.Retryable(err))
}

func TestConcurrentTransitionsHaveOneWinner(t *testing.T) {
	f := newOrderFixture(t)
	o := f.place(t)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Transition(context.Background(), o.ID, f.merchant, models.StatusConfirmed, o.Version)
		}()
	}
	wg.Wait()

	var ok, stale int
	for _, err := range errs {
		switch apperr.KindOf(err) {
		case "":
			ok++
		case apperr.StaleOrderVersion:
			stale++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, stale)

	stored, err := f.svc.Get(context.Background(), o.ID, f.merchant)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.Version)
	assert.EqualValues(t, 2, testsupport.Count(t, f.db, &models.OrderStatusEvent{}))
}

func TestCustomerCancelWindow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	o := f.place(t)
	assert.Equal(t, 3, testsupport.Stock(t, f.db, f.apple.Variants[0].ID))
	cancelled, err := f.svc.Transition(ctx, o.ID, f.customer, models.StatusCancelled, o.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, testsupport.Stock(t, f.db, f.apple.Variants[0].ID))

	late := f.place(t)
	for _, to := range []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusOutForDelivery} {
		late, err = f.svc.Transition(ctx, late.ID, f.merchant, to, late.Version)
		require.NoError(t, err)
	}
	_, err = f.svc.Transition(ctx, late.ID, f.customer, models.StatusCancelled, late.Version)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestStrangersCannotTouchOrders(t *testing.T) {
	f := newOrderFixture(t)
	o := f.place(t)
	stranger := testsupport.Principal(testsupport.User(t, f.db, models.RoleCustomer))
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, o.ID, stranger, models.StatusCancelled, o.Version)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, o.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, _, err = f.svc.ListForShop(ctx, stranger, f.shop.ID, OrderQuery{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Transition(ctx, o.ID, nil, models.StatusCancelled, o.Version)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestTransitionFiresEvent(t *testing.T) {
	f := newOrderFixture(t)
	o := f.place(t)

	_, err := f.svc.Transition(context.Background(), o.ID, f.merchant, models.StatusConfirmed, o.Version)
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	ev, ok := f.events.events[1].payload.(OrderTransitioned)
	require.True(t, ok)
	assert.Equal(t, models.StatusPlaced, ev.From)
	assert.Equal(t, models.StatusConfirmed, ev.To)
	assert.Equal(t, f.merchant.UserID, ev.ActorID)
}

func TestListOrders(t *testing.T) {
	f := newOrderFixture(t)
	f.place(t)
	f.place(t)
	ctx := context.Background()

	mine, page, err := f.svc.ListMine(ctx, f.customer, OrderQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.EqualValues(t, 2, page.Total)

	shopOrders, _, err := f.svc.ListForShop(ctx, f.merchant, f.shop.ID, OrderQuery{Status: models.StatusConfirmed})
	require.NoError(t, err)
	assert.Empty(t, shopOrders)

	_, _, err = f.svc.ListMine(ctx, f.customer, OrderQuery{Status: "lost"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStockChangesDropCachedProducts(t *testing.T) {
	f := newOrderFixture(t)
	var forgotten []string
	f.svc.forget = func(_ context.Context, keys ...string) error {
		forgotten = append(forgotten, keys...)
		return nil
	}
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, f.customer.UserID, f.cart(
		CartLine{ProductID: f.apple.ID, Quantity: 1},
		CartLine{ProductID: f.bread.ID, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{productKey(f.apple.ID), productKey(f.bread.ID)}, forgotten)

	forgotten = nil
	o, err = f.svc.Transition(ctx, o.ID, f.merchant, models.StatusConfirmed, o.Version)
	require.NoError(t, err)
	assert.Empty(t, forgotten)

	_, err = f.svc.Transition(ctx, o.ID, f.customer, models.StatusCancelled, o.Version)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{productKey(f.apple.ID), productKey(f.bread.ID)}, forgotten)
}

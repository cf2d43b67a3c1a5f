package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/collection"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

// CartLine is one requested line of a new order. An empty VariantID picks
// the product's first active variant.
type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is a customer's checkout request.
type CreateOrderInput struct {
	ShopID          string              `json:"shop_id" validate:"required"`
	Lines           []CartLine          `json:"items" validate:"dive"`
	DeliveryType    models.DeliveryType `json:"delivery_type" validate:"nullable,in=delivery,pickup"`
	DeliveryAddress string              `json:"delivery_address" validate:"max=512"`
	Notes           string              `json:"notes" validate:"max=1024"`
}

// Quote previews what CreateOrder would charge, without reserving stock.
type Quote struct {
	ShopID       string          `json:"shop_id"`
	Lines        []Resolution    `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount_total"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Total        decimal.Decimal `json:"total"`
	MinimumOrder decimal.Decimal `json:"minimum_order"`
	MeetsMinimum bool            `json:"meets_minimum"`
}

// OrderQuery filters an order listing.
type OrderQuery struct {
	Status  models.OrderStatus
	Sort    repositories.OrderSort
	Page    int
	PerPage int
}

// OrderService owns order creation and the status lifecycle.
type OrderService struct {
	store   *repositories.Store
	pricing *PricingService
	events  Publisher
	now     func() time.Time
	forget  func(ctx context.Context, keys ...string) error
}

func NewOrderService(store *repositories.Store, pricing *PricingService, events Publisher) *OrderService {
	return &OrderService{
		store:   store,
		pricing: pricing,
		events:  publisherOrNop(events),
		now:     time.Now,
		forget:  cache.Forget,
	}
}

// forgetStock drops cached products whose stock the items moved.
func (s *OrderService) forgetStock(ctx context.Context, items []models.OrderItem) {
	ids := collection.Unique(collection.Map(items, func(it models.OrderItem) string { return it.ProductID }))
	_ = s.forget(ctx, collection.Map(ids, productKey)...)
}

type pricedLine struct {
	product *models.Product
	variant *models.Variant
	res     Resolution
}

type pricedCart struct {
	shop     *models.Shop
	lines    []pricedLine
	subtotal decimal.Decimal
	discount decimal.Decimal
	fee      decimal.Decimal
	total    decimal.Decimal
}

func (c *pricedCart) meetsMinimum() bool {
	return c.subtotal.GreaterThanOrEqual(c.shop.MinimumOrder)
}

func (c *pricedCart) quote() *Quote {
	return &Quote{
		ShopID:       c.shop.ID,
		Lines:        collection.Map(c.lines, func(l pricedLine) Resolution { return l.res }),
		Subtotal:     c.subtotal,
		Discount:     c.discount,
		DeliveryFee:  c.fee,
		Total:        c.total,
		MinimumOrder: c.shop.MinimumOrder,
		MeetsMinimum: c.meetsMinimum(),
	}
}

func normalizeDelivery(in *CreateOrderInput) map[string]string {
	fields := map[string]string{}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			fields[fmt.Sprintf("items.%d.quantity", i)] = "The quantity must be greater than 0."
		}
	}
	if in.DeliveryType == "" {
		in.DeliveryType = models.DeliveryHome
	}
	switch in.DeliveryType {
	case models.DeliveryHome:
		if strings.TrimSpace(in.DeliveryAddress) == "" {
			fields["delivery_address"] = "A delivery address is required for delivery orders."
		}
	case models.DeliveryPickup:
	default:
		fields["delivery_type"] = "The delivery_type must be one of: delivery, pickup."
	}
	return fields
}

// priceCart runs the catalogue checks on in and prices it at at. Checks
// happen in a fixed order so the first failure is deterministic.
func (s *OrderService) priceCart(ctx context.Context, store *repositories.Store, in *CreateOrderInput, at time.Time) (*pricedCart, error) {
	if len(in.Lines) == 0 {
		return nil, apperr.New(apperr.EmptyCart, "the cart is empty")
	}
	if fields := normalizeDelivery(in); len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	shop, err := store.Shops().FindByID(ctx, in.ShopID)
	if err != nil {
		return nil, err
	}
	if shop.Status != models.ShopApproved {
		return nil, apperr.New(apperr.ShopNotApproved, "shop %q is not approved", shop.Name)
	}
	if !shop.Orderable() {
		return nil, apperr.New(apperr.ShopClosed, "shop %q is not accepting orders", shop.Name)
	}

	ids := collection.Unique(collection.Map(in.Lines, func(l CartLine) string { return l.ProductID }))
	products, err := store.Products().FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("orders: load products: %w", err)
	}

	cart := &pricedCart{shop: shop, lines: make([]pricedLine, len(in.Lines))}
	pricing := make([]PricingLine, len(in.Lines))
	for i, l := range in.Lines {
		p, ok := products[l.ProductID]
		if !ok || p.ShopID != shop.ID || !p.Active {
			return nil, apperr.New(apperr.ProductNotInShop, "product %s is not sold by this shop", l.ProductID)
		}
		v, ok := pickVariant(p, l.VariantID)
		if !ok {
			return nil, apperr.New(apperr.ProductNotInShop, "product %s has no such variant", l.ProductID)
		}
		cart.lines[i] = pricedLine{product: p, variant: v}
		pricing[i] = PricingLine{ProductID: p.ID, ShopID: shop.ID, Quantity: l.Quantity, UnitPrice: v.Price}
	}

	resolved, err := s.pricing.resolve(ctx, store, pricing, at)
	if err != nil {
		return nil, err
	}
	cart.subtotal, cart.discount, cart.fee = decimal.Zero, decimal.Zero, decimal.Zero
	for i, r := range resolved {
		cart.lines[i].res = r
		cart.subtotal = cart.subtotal.Add(r.Gross)
		cart.discount = cart.discount.Add(r.Discount)
	}
	if in.DeliveryType == models.DeliveryHome {
		cart.fee = shop.DeliveryFee
	}
	cart.total = cart.subtotal.Sub(cart.discount).Add(cart.fee)
	return cart, nil
}

func pickVariant(p *models.Product, variantID string) (*models.Variant, bool) {
	if variantID == "" {
		return p.DefaultVariant()
	}
	v, ok := p.Variant(variantID)
	if !ok || !v.Active {
		return nil, false
	}
	return v, true
}

// Quote prices a cart the way CreateOrder would right now.
func (s *OrderService) Quote(ctx context.Context, in CreateOrderInput) (*Quote, error) {
	cart, err := s.priceCart(ctx, s.store, &in, s.now())
	if err != nil {
		return nil, err
	}
	return cart.quote(), nil
}

// CreateOrder turns a cart into a placed order. Offer prices are frozen on
// the line items, stock is reserved and offer usage counted, all in one
// transaction: on any error nothing is persisted.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, in CreateOrderInput) (*models.Order, error) {
	order, err := s.createOrder(ctx, customerID, in)
	if err != nil {
		metrics.OrderRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}

	s.forgetStock(ctx, order.Items)
	metrics.OrdersCreated.WithLabelValues(string(order.DeliveryType)).Inc()
	logger.WithCtx(ctx).Info("order placed",
		"order_id", order.ID, "number", order.Number, "shop_id", order.ShopID, "total", order.Total.String())
	s.events.Fire(ctx, EventOrderPlaced, OrderPlaced{Order: order})
	return order, nil
}

func (s *OrderService) createOrder(ctx context.Context, customerID string, in CreateOrderInput) (*models.Order, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "sign in to place an order")
	}
	now := s.now().UTC()

	var (
		order  *models.Order
		scopes []models.OfferScope
	)
	err := s.store.Tx(ctx, func(tx *repositories.Store) error {
		cart, err := s.priceCart(ctx, tx, &in, now)
		if err != nil {
			return err
		}

		for i, l := range cart.lines {
			ok, err := tx.Products().DecrementStock(ctx, l.variant.ID, l.res.Line.Quantity)
			if err != nil {
				return fmt.Errorf("orders: reserve stock: %w", err)
			}
			if !ok {
				return &apperr.Error{
					Kind:    apperr.OutOfStock,
					Message: fmt.Sprintf("not enough stock for %s", l.product.Name),
					Fields:  map[string]string{fmt.Sprintf("items.%d.quantity", i): "Not enough stock."},
				}
			}
		}
		if !cart.meetsMinimum() {
			return apperr.Invalid(map[string]string{
				"items": fmt.Sprintf("The order subtotal must be at least %s.", cart.shop.MinimumOrder.StringFixed(2)),
			})
		}

		order = buildOrder(customerID, in, cart, now)
		scopes = scopes[:0]
		for _, l := range cart.lines {
			if l.res.Offer != nil {
				scopes = append(scopes, l.res.Offer.Scope())
			}
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("orders: create: %w", err)
		}
		if err := tx.Orders().AppendEvent(ctx, &models.OrderStatusEvent{
			OrderID: order.ID,
			To:      models.StatusPlaced,
			ActorID: customerID,
			Version: order.Version,
		}); err != nil {
			return fmt.Errorf("orders: append event: %w", err)
		}

		for _, id := range appliedOffers(order.Items) {
			if err := tx.Offers().IncrementUsage(ctx, id, 1); err != nil {
				return fmt.Errorf("orders: count offer usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		metrics.OffersApplied.WithLabelValues(string(sc)).Inc()
	}
	return order, nil
}

func buildOrder(customerID string, in CreateOrderInput, cart *pricedCart, at time.Time) *models.Order {
	o := &models.Order{
		Number:          newOrderNumber(),
		CustomerID:      customerID,
		ShopID:          cart.shop.ID,
		Status:          models.StatusPlaced,
		Version:         1,
		PaymentMethod:   models.PaymentCOD,
		DeliveryType:    in.DeliveryType,
		CustomerNotes:   strings.TrimSpace(in.Notes),
		Subtotal:        cart.subtotal,
		DiscountTotal:   cart.discount,
		DeliveryFee:     cart.fee,
		Total:           cart.total,
		StatusChangedAt: at,
		Items:           make([]models.OrderItem, len(cart.lines)),
	}
	if in.DeliveryType == models.DeliveryHome {
		o.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	}
	for i, l := range cart.lines {
		item := models.OrderItem{
			Position:    i,
			ProductID:   l.product.ID,
			VariantID:   l.variant.ID,
			ProductName: l.product.Name,
			VariantName: l.variant.Name,
			Quantity:    l.res.Line.Quantity,
			UnitPrice:   l.res.Line.UnitPrice,
			Discount:    l.res.Discount,
			LineTotal:   l.res.Total,
		}
		if l.res.Offer != nil {
			id := l.res.Offer.ID
			item.OfferID = &id
		}
		o.Items[i] = item
	}
	return o
}

func appliedOffers(items []models.OrderItem) []string {
	applied := collection.Filter(items, func(it models.OrderItem) bool { return it.OfferID != nil })
	return collection.Unique(collection.Map(applied, func(it models.OrderItem) string { return *it.OfferID }))
}

func newOrderNumber() string {
	return "ORD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Transition moves an order to target on behalf of actor. expectedVersion
// must match the stored version; the check happens before authority so a
// replayed call reports StaleOrderVersion.
func (s *OrderService) Transition(ctx context.Context, orderID string, actor *auth.Principal, target models.OrderStatus, expectedVersion int64) (*models.Order, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, "sign in to update orders")
	}
	if !target.Valid() {
		return nil, apperr.Invalid(map[string]string{"status": fmt.Sprintf("Unknown status %q.", target)})
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.store.Tx(ctx, func(tx *repositories.Store) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Version != expectedVersion {
			return staleVersion(o, expectedVersion)
		}
		if err := authorizeTransition(o, actor, target); err != nil {
			return err
		}

		at := s.now().UTC()
		ok, err := tx.Orders().UpdateStatus(ctx, o.ID, o.Version, target, at)
		if err != nil {
			return fmt.Errorf("orders: update status: %w", err)
		}
		if !ok {
			return staleVersion(o, expectedVersion)
		}
		from = o.Status
		o.Status, o.Version, o.StatusChangedAt = target, o.Version+1, at

		if err := tx.Orders().AppendEvent(ctx, &models.OrderStatusEvent{
			OrderID: o.ID,
			From:    from,
			To:      target,
			ActorID: actor.UserID,
			Version: o.Version,
		}); err != nil {
			return fmt.Errorf("orders: append event: %w", err)
		}

		if target == models.StatusCancelled {
			for _, it := range o.Items {
				if err := tx.Products().IncrementStock(ctx, it.VariantID, it.Quantity); err != nil {
					return fmt.Errorf("orders: restore stock: %w", err)
				}
			}
		}
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrStaleOrderVersion) {
			metrics.StaleVersionConflicts.Inc()
		}
		return nil, err
	}

	if target == models.StatusCancelled {
		s.forgetStock(ctx, order.Items)
	}
	metrics.OrderTransitions.WithLabelValues(string(from), string(target)).Inc()
	logger.WithCtx(ctx).Info("order transitioned",
		"order_id", order.ID, "from", from, "to", target, "version", order.Version, "actor_id", actor.UserID)
	s.events.Fire(ctx, EventOrderTransitioned, OrderTransitioned{Order: order, From: from, To: target, ActorID: actor.UserID})
	return order, nil
}

func staleVersion(o *models.Order, expected int64) error {
	return apperr.New(apperr.StaleOrderVersion,
		"order %s is at version %d, not %d; reload and retry", o.Number, o.Version, expected)
}

// Get returns an order visible to actor: its customer, the shop's owner or
// an admin.
func (s *OrderService) Get(ctx context.Context, orderID string, actor *auth.Principal) (*models.Order, error) {
	o, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !relationTo(o, actor).any() {
		return nil, apperr.New(apperr.Forbidden, "not a party to order %s", o.Number)
	}
	return o, nil
}

// Events returns the status history of an order visible to actor.
func (s *OrderService) Events(ctx context.Context, orderID string, actor *auth.Principal) ([]models.OrderStatusEvent, error) {
	if _, err := s.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.store.Orders().Events(ctx, orderID)
}

// ListMine pages through the actor's own orders.
func (s *OrderService) ListMine(ctx context.Context, actor *auth.Principal, q OrderQuery) ([]models.Order, orm.Pagination, error) {
	if actor == nil {
		return nil, orm.Pagination{}, apperr.New(apperr.Unauthenticated, "sign in to list orders")
	}
	return s.list(ctx, repositories.OrderFilter{CustomerID: actor.UserID}, q)
}

// ListForShop pages through a shop's orders for its owner or an admin.
func (s *OrderService) ListForShop(ctx context.Context, actor *auth.Principal, shopID string, q OrderQuery) ([]models.Order, orm.Pagination, error) {
	if !actor.OwnsShop(shopID) && !actor.IsAdmin() {
		return nil, orm.Pagination{}, apperr.New(apperr.Forbidden, "not your shop")
	}
	return s.list(ctx, repositories.OrderFilter{ShopIDs: []string{shopID}}, q)
}

func (s *OrderService) list(ctx context.Context, f repositories.OrderFilter, q OrderQuery) ([]models.Order, orm.Pagination, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, orm.Pagination{}, apperr.Invalid(map[string]string{"status": fmt.Sprintf("Unknown status %q.", q.Status)})
	}
	f.Status = q.Status
	return s.store.Orders().List(ctx, f, q.Sort, q.Page, q.PerPage)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/collection"
)

var hundred = decimal.NewFromInt(100)

// PricingLine is one cart line to be priced.
type PricingLine struct {
	ProductID string          `json:"product_id"`
	ShopID    string          `json:"shop_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Gross is quantity × unit price.
func (l PricingLine) Gross() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Resolution is the pricing outcome for one line. Offer is nil when no
// offer applies.
type Resolution struct {
	Line     PricingLine     `json:"line"`
	Offer    *models.Offer   `json:"offer,omitempty"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// PricingService picks the offer for each order line.
type PricingService struct {
	store *repositories.Store
	now   func() time.Time
}

func NewPricingService(store *repositories.Store) *PricingService {
	return &PricingService{store: store, now: time.Now}
}

// ResolveOffers loads the offers of every shop on the lines and prices each
// line at instant at (zero means now).
func (s *PricingService) ResolveOffers(ctx context.Context, lines []PricingLine, at time.Time) ([]Resolution, error) {
	return s.resolve(ctx, s.store, lines, at)
}

// resolve reads offers through store, which may be transaction-bound.
func (s *PricingService) resolve(ctx context.Context, store *repositories.Store, lines []PricingLine, at time.Time) ([]Resolution, error) {
	if at.IsZero() {
		at = s.now()
	}
	shopIDs := collection.Unique(collection.Map(lines, func(l PricingLine) string { return l.ShopID }))
	offers, err := store.Offers().Active(ctx, shopIDs)
	if err != nil {
		return nil, fmt.Errorf("pricing: load offers: %w", err)
	}
	return PriceLines(lines, offers, at, config.CurrencyMinorUnits()), nil
}

// PriceLines is the pure core of ResolveOffers. For each line it considers
// the offers in effect at at for that product or its shop, and applies at
// most one:
//
//  1. a product offer beats any shop offer;
//  2. within a scope the larger discount wins;
//  3. remaining ties go to the smaller offer ID.
//
// Discounts are capped at the line gross and rounded half-up to units
// decimal places.
func PriceLines(lines []PricingLine, offers []models.Offer, at time.Time, units int32) []Resolution {
	live := collection.Filter(offers, func(o models.Offer) bool { return o.InEffect(at) })
	byShop := collection.GroupBy(live, func(o models.Offer) string { return o.ShopID })

	out := make([]Resolution, len(lines))
	for i, line := range lines {
		gross := line.Gross()
		res := Resolution{Line: line, Gross: gross, Discount: decimal.Zero, Total: gross}

		candidates := collection.Filter(byShop[line.ShopID], appliesTo(line.ProductID))
		priced := collection.Map(candidates, func(o models.Offer) candidate {
			return candidate{offer: o, discount: discountFor(&o, gross, line.Quantity, units)}
		})
		if best, ok := collection.Min(priced, bestOffer); ok {
			offer := best.offer
			res.Offer = &offer
			res.Discount = best.discount
			res.Total = gross.Sub(best.discount)
		}
		out[i] = res
	}
	return out
}

type candidate struct {
	offer    models.Offer
	discount decimal.Decimal
}

func scopeRank(c candidate) int {
	if c.offer.Scope() == models.ScopeProduct {
		return 0
	}
	return 1
}

var bestOffer = collection.Then(
	collection.By(scopeRank),
	func(a, b candidate) int { return b.discount.Cmp(a.discount) },
	collection.By(func(c candidate) string { return c.offer.ID }),
)

func appliesTo(productID string) collection.Predicate[models.Offer] {
	return func(o models.Offer) bool {
		return o.Scope() == models.ScopeShop || *o.ProductID == productID
	}
}

func discountFor(o *models.Offer, gross decimal.Decimal, qty int, units int32) decimal.Decimal {
	var d decimal.Decimal
	switch o.DiscountType {
	case models.DiscountPercentage:
		d = gross.Mul(o.Value).Div(hundred)
	case models.DiscountFixedAmount:
		d = o.Value.Mul(decimal.NewFromInt(int64(qty)))
	default:
		return decimal.Zero
	}
	if d.GreaterThan(gross) {
		d = gross
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	// Round is half away from zero, which is half-up for non-negative amounts.
	return d.Round(units)
}

package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/collection"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
)

type ShopInput struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description" validate:"max=4000"`
	Category     string          `json:"category" validate:"max=64"`
	Address      string          `json:"address" validate:"max=512"`
	Phone        string          `json:"phone" validate:"max=32"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee" validate:"gte=0"`
	MinimumOrder decimal.Decimal `json:"minimum_order" validate:"gte=0"`
}

// ShopHoursInput toggles a shop's open and accepting-orders flags. Nil
// fields are left unchanged.
type ShopHoursInput struct {
	IsOpen          *bool `json:"is_open"`
	AcceptingOrders *bool `json:"accepting_orders"`
}

type VariantInput struct {
	Name  string          `json:"name" validate:"max=128"`
	SKU   string          `json:"sku" validate:"max=64"`
	MRP   decimal.Decimal `json:"mrp" validate:"gte=0"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
	Stock int             `json:"stock" validate:"gte=0"`
}

type ProductInput struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=4000"`
	Category    string         `json:"category" validate:"max=64"`
	Brand       string         `json:"brand" validate:"max=128"`
	Active      *bool          `json:"active"`
	Variants    []VariantInput `json:"variants" validate:"dive"`
}

type OfferInput struct {
	ProductID    *string             `json:"product_id"`
	Name         string              `json:"name" validate:"required,max=255"`
	Description  string              `json:"description" validate:"max=4000"`
	DiscountType models.DiscountType `json:"discount_type" validate:"required,in=percentage,fixed_amount"`
	Value        decimal.Decimal     `json:"value" validate:"gt=0"`
	Active       *bool               `json:"active"`
	ValidFrom    time.Time           `json:"valid_from"`
	ValidTill    time.Time           `json:"valid_till"`
}

// ShopQuery filters the public shop directory.
type ShopQuery struct {
	Category string
	Search   string
	OpenOnly bool
	Sort     repositories.ShopSort
	Page     int
	PerPage  int
}

// ShopDetail is a shop with the offers currently in effect.
type ShopDetail struct {
	*models.Shop
	Offers []models.Offer `json:"offers"`
}

// CatalogService manages shops, products and offers.
type CatalogService struct {
	store *repositories.Store
	disk  storage.Disk
	now   func() time.Time
}

func NewCatalogService(store *repositories.Store, disk storage.Disk) *CatalogService {
	return &CatalogService{store: store, disk: disk, now: time.Now}
}

func productKey(id string) string { return "catalog:product:" + id }
func shopKey(id string) string    { return "catalog:shop:" + id }

func canManage(actor *auth.Principal, shop *models.Shop) bool {
	return actor.IsAdmin() || (actor != nil && shop.OwnerID == actor.UserID)
}

// visible hides unapproved shops from everyone but their owner and admins.
func visible(actor *auth.Principal, shop *models.Shop) bool {
	return shop.Status == models.ShopApproved || canManage(actor, shop)
}

func (s *CatalogService) managedShop(ctx context.Context, actor *auth.Principal, shopID string) (*models.Shop, error) {
	shop, err := s.store.Shops().FindByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, shop) {
		return nil, apperr.New(apperr.Forbidden, "you do not manage shop %q", shop.Name)
	}
	return shop, nil
}

// ── Shops ────────────────────────────────────────────────────────────────────

// ListShops pages through approved shops.
func (s *CatalogService) ListShops(ctx context.Context, q ShopQuery) ([]models.Shop, orm.Pagination, error) {
	return s.store.Shops().List(ctx, repositories.ShopFilter{
		Status:   models.ShopApproved,
		Category: q.Category,
		Search:   q.Search,
		OpenOnly: q.OpenOnly,
		Sort:     q.Sort,
	}, q.Page, q.PerPage)
}

// GetShop returns a shop and its current offers. Unapproved shops read as
// missing to customers.
func (s *CatalogService) GetShop(ctx context.Context, shopID string, viewer *auth.Principal) (*ShopDetail, error) {
	shop, err := cache.Remember(ctx, shopKey(shopID), config.CatalogCacheTTL(), func() (*models.Shop, error) {
		return s.store.Shops().FindByID(ctx, shopID)
	})
	if err != nil {
		return nil, err
	}
	if !visible(viewer, shop) {
		return nil, apperr.New(apperr.NotFound, "shop not found")
	}
	offers, err := s.CurrentOffers(ctx, shop.ID)
	if err != nil {
		return nil, err
	}
	return &ShopDetail{Shop: shop, Offers: offers}, nil
}

// MyShops lists the shops owned by actor.
func (s *CatalogService) MyShops(ctx context.Context, actor *auth.Principal, page, perPage int) ([]models.Shop, orm.Pagination, error) {
	return s.store.Shops().List(ctx, repositories.ShopFilter{OwnerID: actor.UserID, Sort: repositories.ShopSortNewest}, page, perPage)
}

// CreateShop registers a shop owned by actor. It starts pending approval
// and closed.
func (s *CatalogService) CreateShop(ctx context.Context, actor *auth.Principal, in ShopInput) (*models.Shop, error) {
	if !actor.HasRole(auth.RoleMerchant) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "only merchants can open shops")
	}
	shop := &models.Shop{
		OwnerID:      actor.UserID,
		Status:       models.ShopPending,
		DeliveryFee:  decimal.Zero,
		MinimumOrder: decimal.Zero,
	}
	applyShopInput(shop, in)
	if err := s.store.Shops().Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("catalog: create shop: %w", err)
	}
	logger.WithCtx(ctx).Info("shop created", "shop_id", shop.ID, "owner_id", shop.OwnerID)
	return shop, nil
}

func applyShopInput(shop *models.Shop, in ShopInput) {
	shop.Name = strings.TrimSpace(in.Name)
	shop.Description = in.Description
	shop.Category = strings.ToLower(strings.TrimSpace(in.Category))
	shop.Address = in.Address
	shop.Phone = in.Phone
	shop.DeliveryFee = in.DeliveryFee
	shop.MinimumOrder = in.MinimumOrder
}

func (s *CatalogService) UpdateShop(ctx context.Context, actor *auth.Principal, shopID string, in ShopInput) (*models.Shop, error) {
	shop, err := s.managedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	applyShopInput(shop, in)
	err = s.store.Shops().Update(ctx, shop.ID, map[string]any{
		"name":          shop.Name,
		"description":   shop.Description,
		"category":      shop.Category,
		"address":       shop.Address,
		"phone":         shop.Phone,
		"delivery_fee":  shop.DeliveryFee,
		"minimum_order": shop.MinimumOrder,
	})
	if err != nil {
		return nil, err
	}
	_ = cache.Forget(ctx, shopKey(shop.ID))
	return shop, nil
}

// SetHours opens or closes a shop for orders.
func (s *CatalogService) SetHours(ctx context.Context, actor *auth.Principal, shopID string, in ShopHoursInput) (*models.Shop, error) {
	shop, err := s.managedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.IsOpen != nil {
		shop.IsOpen = *in.IsOpen
		fields["is_open"] = shop.IsOpen
	}
	if in.AcceptingOrders != nil {
		shop.AcceptingOrders = *in.AcceptingOrders
		fields["accepting_orders"] = shop.AcceptingOrders
	}
	if len(fields) == 0 {
		return shop, nil
	}
	if err := s.store.Shops().Update(ctx, shop.ID, fields); err != nil {
		return nil, err
	}
	_ = cache.Forget(ctx, shopKey(shop.ID))
	logger.WithCtx(ctx).Info("shop hours changed", "shop_id", shop.ID, "open", shop.IsOpen, "accepting", shop.AcceptingOrders)
	return shop, nil
}

// AdminListShops pages through shops in any status.
func (s *CatalogService) AdminListShops(ctx context.Context, status models.ShopStatus, page, perPage int) ([]models.Shop, orm.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, orm.Pagination{}, apperr.Invalid(map[string]string{"status": fmt.Sprintf("Unknown status %q.", status)})
	}
	return s.store.Shops().List(ctx, repositories.ShopFilter{Status: status, Sort: repositories.ShopSortNewest}, page, perPage)
}

// SetApproval moves a shop between approval states.
func (s *CatalogService) SetApproval(ctx context.Context, shopID string, status models.ShopStatus, reason string) (*models.Shop, error) {
	if !status.Valid() {
		return nil, apperr.Invalid(map[string]string{"status": "The status must be one of: pending, approved, rejected, suspended."})
	}
	shop, err := s.store.Shops().FindByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	shop.Status, shop.StatusReason = status, strings.TrimSpace(reason)
	if err := s.store.Shops().Update(ctx, shop.ID, map[string]any{
		"status":        shop.Status,
		"status_reason": shop.StatusReason,
	}); err != nil {
		return nil, err
	}
	_ = cache.Forget(ctx, shopKey(shop.ID))
	logger.WithCtx(ctx).Info("shop approval changed", "shop_id", shop.ID, "status", status)
	return shop, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type ProductQuery struct {
	Category string
	Search   string
	Page     int
	PerPage  int
}

// ListProducts pages through a shop's products. Customers see active
// products of approved shops only.
func (s *CatalogService) ListProducts(ctx context.Context, shopID string, viewer *auth.Principal, q ProductQuery) ([]models.Product, orm.Pagination, error) {
	shop, err := s.store.Shops().FindByID(ctx, shopID)
	if err != nil {
		return nil, orm.Pagination{}, err
	}
	if !visible(viewer, shop) {
		return nil, orm.Pagination{}, apperr.New(apperr.NotFound, "shop not found")
	}
	return s.store.Products().List(ctx, repositories.ProductFilter{
		ShopID:     shop.ID,
		Category:   q.Category,
		Search:     q.Search,
		ActiveOnly: !canManage(viewer, shop),
	}, q.Page, q.PerPage)
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string, viewer *auth.Principal) (*models.Product, error) {
	p, err := cache.Remember(ctx, productKey(productID), config.CatalogCacheTTL(), func() (*models.Product, error) {
		return s.store.Products().FindByID(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	shop, err := s.store.Shops().FindByID(ctx, p.ShopID)
	if err != nil {
		return nil, err
	}
	if canManage(viewer, shop) {
		return p, nil
	}
	if !p.Active || shop.Status != models.ShopApproved {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	p.Variants = collection.Filter(p.Variants, func(v models.Variant) bool { return v.Active })
	return p, nil
}

func toVariants(in []VariantInput) []models.Variant {
	return collection.Map(in, func(v VariantInput) models.Variant {
		mrp := v.MRP
		if mrp.IsZero() {
			mrp = v.Price
		}
		return models.Variant{
			Name:   strings.TrimSpace(v.Name),
			SKU:    strings.TrimSpace(v.SKU),
			MRP:    mrp,
			Price:  v.Price,
			Stock:  v.Stock,
			Active: true,
		}
	})
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor *auth.Principal, shopID string, in ProductInput) (*models.Product, error) {
	shop, err := s.managedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	if len(in.Variants) == 0 {
		return nil, apperr.Invalid(map[string]string{"variants": "At least one variant is required."})
	}
	p := &models.Product{
		ShopID:      shop.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Brand:       in.Brand,
		Active:      in.Active == nil || *in.Active,
		Variants:    toVariants(in.Variants),
	}
	for i := range p.Variants {
		p.Variants[i].Position = i
	}
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("catalog: create product: %w", err)
	}
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID, "shop_id", shop.ID)
	return p, nil
}

// UpdateProduct rewrites a product. A non-empty Variants list replaces the
// variant set; old variants stay on record, deactivated.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor *auth.Principal, productID string, in ProductInput) (*models.Product, error) {
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedShop(ctx, actor, p.ShopID); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"description": in.Description,
		"category":    strings.ToLower(strings.TrimSpace(in.Category)),
		"brand":       in.Brand,
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	err = s.store.Tx(ctx, func(tx *repositories.Store) error {
		if err := tx.Products().Update(ctx, p.ID, fields); err != nil {
			return err
		}
		if len(in.Variants) > 0 {
			return tx.Products().ReplaceVariants(ctx, p.ID, toVariants(in.Variants))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = cache.Forget(ctx, productKey(p.ID))
	return s.store.Products().FindByID(ctx, p.ID)
}

// RetireProduct takes a product off sale along with the offers scoped to
// it. The row stays so past orders and reviews still resolve it.
func (s *CatalogService) RetireProduct(ctx context.Context, actor *auth.Principal, productID string) (*models.Product, error) {
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedShop(ctx, actor, p.ShopID); err != nil {
		return nil, err
	}
	err = s.store.Tx(ctx, func(tx *repositories.Store) error {
		if err := tx.Products().Update(ctx, p.ID, map[string]any{"active": false}); err != nil {
			return err
		}
		return tx.Offers().DeactivateForProduct(ctx, p.ID)
	})
	if err != nil {
		return nil, err
	}
	_ = cache.Forget(ctx, productKey(p.ID))
	p.Active = false
	logger.WithCtx(ctx).Info("product retired", "product_id", p.ID, "shop_id", p.ShopID)
	return p, nil
}

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AddImage stores an uploaded product image on the configured disk.
func (s *CatalogService) AddImage(ctx context.Context, actor *auth.Principal, productID, contentType string, r io.Reader) (*models.ProductImage, error) {
	ext, ok := imageTypes[contentType]
	if !ok {
		return nil, apperr.Invalid(map[string]string{"image": "The image must be a jpeg, png, webp or gif."})
	}
	if s.disk == nil {
		return nil, apperr.New(apperr.Internal, "no storage disk configured")
	}
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedShop(ctx, actor, p.ShopID); err != nil {
		return nil, err
	}

	key := path.Join("products", p.ID, uuid.NewString()+ext)
	if err := s.disk.Put(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("catalog: store image: %w", err)
	}
	img := &models.ProductImage{ProductID: p.ID, Path: key, URL: s.disk.URL(key)}
	if err := s.store.Products().AddImage(ctx, img); err != nil {
		_ = s.disk.Delete(ctx, key)
		return nil, fmt.Errorf("catalog: record image: %w", err)
	}
	_ = cache.Forget(ctx, productKey(p.ID))
	return img, nil
}

// ── Offers ───────────────────────────────────────────────────────────────────

// offerOrder lists product offers first, then larger values, then by name.
var offerOrder = collection.Then(
	collection.By(func(o models.Offer) int {
		if o.Scope() == models.ScopeProduct {
			return 0
		}
		return 1
	}),
	func(a, b models.Offer) int { return b.Value.Cmp(a.Value) },
	collection.By(func(o models.Offer) string { return o.Name }),
)

// CurrentOffers returns the shop's offers in effect now.
func (s *CatalogService) CurrentOffers(ctx context.Context, shopID string) ([]models.Offer, error) {
	offers, err := s.store.Offers().Active(ctx, []string{shopID})
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := collection.Filter(offers, func(o models.Offer) bool { return o.InEffect(now) })
	return collection.Sort(live, offerOrder), nil
}

// ListOffers returns every offer of a shop for its manager.
func (s *CatalogService) ListOffers(ctx context.Context, actor *auth.Principal, shopID string) ([]models.Offer, error) {
	if _, err := s.managedShop(ctx, actor, shopID); err != nil {
		return nil, err
	}
	return s.store.Offers().ListByShop(ctx, shopID)
}

func (s *CatalogService) validateOffer(ctx context.Context, shopID string, in *OfferInput) error {
	fields := map[string]string{}
	switch in.DiscountType {
	case models.DiscountPercentage:
		if !in.Value.IsPositive() || in.Value.GreaterThan(hundred) {
			fields["value"] = "A percentage must be greater than 0 and at most 100."
		}
	case models.DiscountFixedAmount:
		if !in.Value.IsPositive() {
			fields["value"] = "The value must be greater than 0."
		}
	default:
		fields["discount_type"] = "The discount_type must be one of: percentage, fixed_amount."
	}
	if in.ValidFrom.IsZero() {
		in.ValidFrom = s.now().UTC()
	}
	if in.ValidTill.IsZero() || !in.ValidTill.After(in.ValidFrom) {
		fields["valid_till"] = "The valid_till must be after valid_from."
	}
	if in.ProductID != nil && *in.ProductID == "" {
		in.ProductID = nil
	}
	if in.ProductID != nil {
		p, err := s.store.Products().FindByID(ctx, *in.ProductID)
		if err != nil && apperr.KindOf(err) != apperr.NotFound {
			return err
		}
		if p == nil || p.ShopID != shopID {
			fields["product_id"] = "The product does not belong to this shop."
		}
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

func (s *CatalogService) CreateOffer(ctx context.Context, actor *auth.Principal, shopID string, in OfferInput) (*models.Offer, error) {
	shop, err := s.managedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.validateOffer(ctx, shop.ID, &in); err != nil {
		return nil, err
	}
	o := &models.Offer{
		ShopID:       shop.ID,
		ProductID:    in.ProductID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		DiscountType: in.DiscountType,
		Value:        in.Value,
		Active:       in.Active == nil || *in.Active,
		ValidFrom:    in.ValidFrom.UTC(),
		ValidTill:    in.ValidTill.UTC(),
	}
	if err := s.store.Offers().Create(ctx, o); err != nil {
		return nil, fmt.Errorf("catalog: create offer: %w", err)
	}
	logger.WithCtx(ctx).Info("offer created", "offer_id", o.ID, "shop_id", shop.ID, "scope", o.Scope())
	return o, nil
}

// UpdateOffer rewrites an offer. Orders already placed keep the discount
// frozen on their items.
func (s *CatalogService) UpdateOffer(ctx context.Context, actor *auth.Principal, offerID string, in OfferInput) (*models.Offer, error) {
	o, err := s.store.Offers().FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedShop(ctx, actor, o.ShopID); err != nil {
		return nil, err
	}
	if in.ValidFrom.IsZero() {
		in.ValidFrom = o.ValidFrom
	}
	if err := s.validateOffer(ctx, o.ShopID, &in); err != nil {
		return nil, err
	}
	fields := map[string]any{
		"product_id":    in.ProductID,
		"name":          strings.TrimSpace(in.Name),
		"description":   in.Description,
		"discount_type": in.DiscountType,
		"value":         in.Value,
		"valid_from":    in.ValidFrom.UTC(),
		"valid_till":    in.ValidTill.UTC(),
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if err := s.store.Offers().Update(ctx, o.ID, fields); err != nil {
		return nil, err
	}
	return s.store.Offers().FindByID(ctx, o.ID)
}

// DeleteOffer removes an offer. Orders already placed keep its discount.
func (s *CatalogService) DeleteOffer(ctx context.Context, actor *auth.Principal, offerID string) error {
	o, err := s.store.Offers().FindByID(ctx, offerID)
	if err != nil {
		return err
	}
	if _, err := s.managedShop(ctx, actor, o.ShopID); err != nil {
		return err
	}
	if err := s.store.Offers().Delete(ctx, o.ID); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("offer deleted", "offer_id", o.ID, "shop_id", o.ShopID)
	return nil
}

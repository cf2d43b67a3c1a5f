package repositories

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

type ProductRepository struct {
	db *gorm.DB
}

// ProductFilter narrows product listings within a shop.
type ProductFilter struct {
	ShopID     string
	Category   string
	Search     string
	ActiveOnly bool
}

func orderedVariants(db *gorm.DB) *gorm.DB { return db.Order("position") }

func withVariants(db *gorm.DB) *gorm.DB { return db.Preload("Variants", orderedVariants) }

// Create inserts p together with its variants.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID loads a product with variants (by position) and images.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", orderedVariants).
		Preload("Images").
		Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &p, nil
}

// FindMany loads the products with the given IDs, keyed by ID. Missing IDs
// are simply absent from the result.
func (r *ProductRepository) FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	defer metrics.ObserveDBQuery("product.find_many", time.Now())

	var products []models.Product
	if len(ids) > 0 {
		err := r.db.WithContext(ctx).Preload("Variants", orderedVariants).
			Where("id IN ?", ids).Find(&products).Error
		if err != nil {
			return nil, err
		}
	}
	out := make(map[string]*models.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, f ProductFilter, page, perPage int) ([]models.Product, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if f.ShopID != "" {
		q = q.Where("shop_id = ?", f.ShopID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(brand) LIKE ?)", like, like)
	}
	var products []models.Product
	p, err := orm.Paginate(q, page, perPage, "name", &products, withVariants)
	return products, p, err
}

// Update writes product columns.
func (r *ProductRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "product")
	}
	return nil
}

// ReplaceVariants swaps the product's variant list. Existing variant rows
// are kept (order items reference them) but deactivated.
func (r *ProductRepository) ReplaceVariants(ctx context.Context, productID string, variants []models.Variant) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Variant{}).Where("product_id = ?", productID).
		Update("active", false).Error; err != nil {
		return err
	}
	for i := range variants {
		variants[i].ProductID = productID
		variants[i].Position = i
	}
	if len(variants) == 0 {
		return nil
	}
	return db.Create(&variants).Error
}

func (r *ProductRepository) SetRating(ctx context.Context, id string, rating float64, total int) error {
	return r.Update(ctx, id, map[string]any{"rating": rating, "total_reviews": total})
}

// DecrementStock takes qty units from the variant only if that many are
// available. It reports false when stock was insufficient.
func (r *ProductRepository) DecrementStock(ctx context.Context, variantID string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Variant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *ProductRepository) IncrementStock(ctx context.Context, variantID string, qty int) error {
	return r.db.WithContext(ctx).Model(&models.Variant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *ProductRepository) AddImage(ctx context.Context, img *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

// CountByShops returns product counts for the given shops.
func (r *ProductRepository) CountByShops(ctx context.Context, shopIDs []string) (int64, error) {
	var n int64
	if len(shopIDs) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("shop_id IN ?", shopIDs).Count(&n).Error
	return n, err
}

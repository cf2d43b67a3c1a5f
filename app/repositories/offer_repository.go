package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
)

type OfferRepository struct {
	db *gorm.DB
}

func (r *OfferRepository) Create(ctx context.Context, o *models.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OfferRepository) FindByID(ctx context.Context, id string) (*models.Offer, error) {
	var o models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, notFound(err, "offer")
	}
	return &o, nil
}

func (r *OfferRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "offer")
	}
	return nil
}

// Delete removes offer id. Order items keep their frozen copy of it.
func (r *OfferRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Offer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "offer")
	}
	return nil
}

// DeactivateForProduct switches off every offer scoped to productID.
func (r *OfferRepository) DeactivateForProduct(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("product_id = ? AND active = ?", productID, true).
		Update("active", false).Error
}

// ListByShop returns every offer of the shop, newest first.
func (r *OfferRepository) ListByShop(ctx context.Context, shopID string) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Order("created_at desc").Find(&offers).Error
	return offers, err
}

// Active returns the active offers of the given shops. Validity windows are
// checked by the caller against its own pricing instant.
func (r *OfferRepository) Active(ctx context.Context, shopIDs []string) ([]models.Offer, error) {
	var offers []models.Offer
	if len(shopIDs) == 0 {
		return offers, nil
	}
	err := r.db.WithContext(ctx).
		Where("shop_id IN ? AND active = ?", shopIDs, true).
		Order("id").Find(&offers).Error
	return offers, err
}

// IncrementUsage bumps usage_count by n for offer id.
func (r *OfferRepository) IncrementUsage(ctx context.Context, id string, n int) error {
	return r.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", id).
		Update("usage_count", gorm.Expr("usage_count + ?", n)).Error
}

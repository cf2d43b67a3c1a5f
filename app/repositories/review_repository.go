package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

type ReviewRepository struct {
	db *gorm.DB
}

// Create inserts a review. A violated uniqueness index surfaces as the
// driver error; callers check it with database.IsDuplicateKey.
func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var rv models.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return nil, notFound(err, "review")
	}
	return &rv, nil
}

// Exists reports whether author already reviewed target for order.
func (r *ReviewRepository) Exists(ctx context.Context, authorID, orderID string, t models.ReviewTargetType, targetID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("author_id = ? AND order_id = ? AND target_type = ? AND target_id = ?", authorID, orderID, t, targetID).
		Count(&n).Error
	return n > 0, err
}

// Update writes fields onto review id.
func (r *ReviewRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "review")
	}
	return nil
}

// Delete removes review id. The author may then review the target again.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "review")
	}
	return nil
}

// ListForTarget pages through approved reviews of a product or shop.
func (r *ReviewRepository) ListForTarget(ctx context.Context, t models.ReviewTargetType, targetID string, page, perPage int) ([]models.Review, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("target_type = ? AND target_id = ? AND is_approved = ?", t, targetID, true)
	var reviews []models.Review
	p, err := orm.Paginate(q, page, perPage, "created_at desc", &reviews)
	return reviews, p, err
}

// ListPending pages through reviews awaiting moderation.
func (r *ReviewRepository) ListPending(ctx context.Context, page, perPage int) ([]models.Review, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("is_approved = ?", false)
	var reviews []models.Review
	p, err := orm.Paginate(q, page, perPage, "created_at", &reviews)
	return reviews, p, err
}

func (r *ReviewRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Where("is_approved = ?", false).Count(&n).Error
	return n, err
}

func (r *ReviewRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Update("is_approved", approved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "review")
	}
	return nil
}

// Aggregate returns the average rating and count of approved reviews for
// a target. The average is 0 when there are none.
func (r *ReviewRepository) Aggregate(ctx context.Context, t models.ReviewTargetType, targetID string) (avg float64, count int, err error) {
	var row struct {
		Avg *float64
		N   int
	}
	err = r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS n").
		Where("target_type = ? AND target_id = ? AND is_approved = ?", t, targetID, true).
		Scan(&row).Error
	if err != nil || row.Avg == nil {
		return 0, row.N, err
	}
	return *row.Avg, row.N, nil
}

package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

type ShopRepository struct {
	db *gorm.DB
}

// ShopFilter narrows shop listings. Zero values match everything.
type ShopFilter struct {
	Status   models.ShopStatus
	OwnerID  string
	Category string
	Search   string
	OpenOnly bool
	Sort     ShopSort
}

// ShopSort selects the listing order.
type ShopSort string

const (
	ShopSortRating ShopSort = "rating"
	ShopSortName   ShopSort = "name"
	ShopSortNewest ShopSort = "newest"
)

func (s ShopSort) clause() string {
	switch s {
	case ShopSortName:
		return "name"
	case ShopSortNewest:
		return "created_at desc"
	}
	return "rating desc, name"
}

func (r *ShopRepository) Create(ctx context.Context, s *models.Shop) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ShopRepository) FindByID(ctx context.Context, id string) (*models.Shop, error) {
	var s models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err, "shop")
	}
	return &s, nil
}

// IDsOwnedBy returns the IDs of every shop owned by userID.
func (r *ShopRepository) IDsOwnedBy(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Shop{}).
		Where("owner_id = ?", userID).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

// Update writes the given columns.
func (r *ShopRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "shop")
	}
	return nil
}

func (r *ShopRepository) SetRating(ctx context.Context, id string, rating float64, total int) error {
	return r.Update(ctx, id, map[string]any{"rating": rating, "total_reviews": total})
}

func (r *ShopRepository) List(ctx context.Context, f ShopFilter, page, perPage int) ([]models.Shop, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Shop{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.OpenOnly {
		q = q.Where("is_open = ? AND accepting_orders = ?", true, true)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	var shops []models.Shop
	p, err := orm.Paginate(q, page, perPage, f.Sort.clause(), &shops)
	return shops, p, err
}

// CountByStatus returns the number of shops per approval status.
func (r *ShopRepository) CountByStatus(ctx context.Context) (map[models.ShopStatus]int64, error) {
	var rows []struct {
		Status models.ShopStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Shop{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.ShopStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

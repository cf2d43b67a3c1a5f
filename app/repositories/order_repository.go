package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

type OrderRepository struct {
	db *gorm.DB
}

// OrderFilter narrows order listings. CustomerID and ShopIDs scope the
// listing; both empty means every order.
type OrderFilter struct {
	CustomerID string
	ShopIDs    []string
	Status     models.OrderStatus
	Since      time.Time
}

// OrderSort selects the listing order.
type OrderSort string

const (
	SortNewest OrderSort = "newest"
	SortTotal  OrderSort = "total"
)

func (s OrderSort) clause() string {
	if s == SortTotal {
		return "total desc, created_at desc"
	}
	return "created_at desc"
}

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("position") }

func withItems(db *gorm.DB) *gorm.DB { return db.Preload("Items", orderedItems) }

// Create inserts the order and its items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDBQuery("order.create", time.Now())
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items", orderedItems).Where("id = ?", id).First(&o).Error
	if err != nil {
		return nil, notFound(err, "order")
	}
	return &o, nil
}

// UpdateStatus moves the order to status if it is still at version. It
// reports false when another writer got there first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, version int64, status models.OrderStatus, at time.Time) (bool, error) {
	defer metrics.ObserveDBQuery("order.update_status", time.Now())
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"status":            status,
			"version":           gorm.Expr("version + 1"),
			"status_changed_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *OrderRepository) AppendEvent(ctx context.Context, e *models.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// Events returns the order's status history, oldest first.
func (r *OrderRepository) Events(ctx context.Context, orderID string) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&events).Error
	return events, err
}

func (r *OrderRepository) scoped(ctx context.Context, f OrderFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.ShopIDs != nil {
		// An empty, non-nil ShopIDs matches nothing.
		q = q.Where("shop_id IN ?", append([]string{""}, f.ShopIDs...))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	return q
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter, sort OrderSort, page, perPage int) ([]models.Order, orm.Pagination, error) {
	var orders []models.Order
	p, err := orm.Paginate(r.scoped(ctx, f), page, perPage, sort.clause(), &orders, withItems)
	return orders, p, err
}

// CountByStatus returns order counts per status within the filter.
func (r *OrderRepository) CountByStatus(ctx context.Context, f OrderFilter) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		N      int64
	}
	if err := r.scoped(ctx, f).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.OrderStatus]int64, len(models.Statuses))
	for _, s := range models.Statuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *OrderRepository) Count(ctx context.Context, f OrderFilter) (int64, error) {
	var n int64
	err := r.scoped(ctx, f).Count(&n).Error
	return n, err
}

// Revenue sums the totals of delivered orders within the filter.
func (r *OrderRepository) Revenue(ctx context.Context, f OrderFilter) (decimal.Decimal, error) {
	f.Status = models.StatusDelivered
	var row struct{ Total decimal.NullDecimal }
	if err := r.scoped(ctx, f).Select("SUM(total) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

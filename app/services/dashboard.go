package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

type MerchantDashboard struct {
	Shops          int                            `json:"shops"`
	Products       int64                          `json:"products"`
	OrdersByStatus map[models.OrderStatus]int64   `json:"orders_by_status"`
	OrdersToday    int64                          `json:"orders_today"`
	Revenue        decimal.Decimal                `json:"revenue"`
	PerShop        map[string]MerchantShopSummary `json:"per_shop"`
}

type MerchantShopSummary struct {
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type AdminDashboard struct {
	UsersByRole    map[models.Role]int64        `json:"users_by_role"`
	ShopsByStatus  map[models.ShopStatus]int64  `json:"shops_by_status"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
	OrdersToday    int64                        `json:"orders_today"`
	Revenue        decimal.Decimal              `json:"revenue"`
	PendingReviews int64                        `json:"pending_reviews"`
}

// DashboardService aggregates figures for the merchant and admin consoles.
type DashboardService struct {
	store *repositories.Store
	now   func() time.Time
}

func NewDashboardService(store *repositories.Store) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

func (s *DashboardService) startOfDay() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Merchant summarises every shop the actor owns. Revenue counts delivered
// orders only.
func (s *DashboardService) Merchant(ctx context.Context, actor *auth.Principal) (*MerchantDashboard, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, "not signed in")
	}
	shopIDs, err := s.store.Shops().IDsOwnedBy(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if shopIDs == nil {
		shopIDs = []string{}
	}
	all := repositories.OrderFilter{ShopIDs: shopIDs}

	d := &MerchantDashboard{Shops: len(shopIDs), PerShop: map[string]MerchantShopSummary{}}
	if d.Products, err = s.store.Products().CountByShops(ctx, shopIDs); err != nil {
		return nil, err
	}
	if d.OrdersByStatus, err = s.store.Orders().CountByStatus(ctx, all); err != nil {
		return nil, err
	}
	if d.OrdersToday, err = s.store.Orders().Count(ctx, repositories.OrderFilter{ShopIDs: shopIDs, Since: s.startOfDay()}); err != nil {
		return nil, err
	}
	if d.Revenue, err = s.store.Orders().Revenue(ctx, all); err != nil {
		return nil, err
	}

	for _, id := range shopIDs {
		shop, err := s.store.Shops().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		one := repositories.OrderFilter{ShopIDs: []string{id}}
		sum := MerchantShopSummary{Name: shop.Name, Status: string(shop.Status)}
		if sum.Orders, err = s.store.Orders().Count(ctx, one); err != nil {
			return nil, err
		}
		if sum.Revenue, err = s.store.Orders().Revenue(ctx, one); err != nil {
			return nil, err
		}
		d.PerShop[id] = sum
	}
	return d, nil
}

// Admin summarises the whole marketplace.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	var (
		d   AdminDashboard
		err error
	)
	if d.UsersByRole, err = s.store.Users().CountByRole(ctx); err != nil {
		return nil, err
	}
	if d.ShopsByStatus, err = s.store.Shops().CountByStatus(ctx); err != nil {
		return nil, err
	}
	if d.OrdersByStatus, err = s.store.Orders().CountByStatus(ctx, repositories.OrderFilter{}); err != nil {
		return nil, err
	}
	if d.OrdersToday, err = s.store.Orders().Count(ctx, repositories.OrderFilter{Since: s.startOfDay()}); err != nil {
		return nil, err
	}
	if d.Revenue, err = s.store.Orders().Revenue(ctx, repositories.OrderFilter{}); err != nil {
		return nil, err
	}
	if d.PendingReviews, err = s.store.Reviews().CountPending(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

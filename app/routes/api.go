// Package routes mounts every shopkart endpoint on the router.
package routes

import (
	"context"
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/shopkart/app/controllers"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/graphql"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/middleware"
	"github.com/shashiranjanraj/shopkart/pkg/rbac"
	"github.com/shashiranjanraj/shopkart/pkg/router"
	"github.com/shashiranjanraj/shopkart/pkg/sse"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

// Deps is everything the HTTP surface calls into.
type Deps struct {
	Identity  *services.IdentityService
	Catalog   *services.CatalogService
	Orders    *services.OrderService
	Reviews   *services.ReviewService
	Dashboard *services.DashboardService
	Hub       *ws.Hub
	Streams   *sse.Broker
	Schema    gql.Schema
	Health    func(context.Context) error
}

// Register mounts the API on r.
func Register(r *router.Router, d Deps) {
	authC := controllers.NewAuthController(d.Identity)
	catalogC := controllers.NewCatalogController(d.Catalog, d.Reviews)
	orderC := controllers.NewOrderController(d.Orders, d.Reviews)
	reviewC := controllers.NewReviewController(d.Reviews)
	merchantC := controllers.NewMerchantController(d.Catalog, d.Dashboard)
	adminC := controllers.NewAdminController(d.Identity, d.Catalog, d.Reviews, d.Dashboard)

	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(controllers.Health(d.Health)))
	api.Post("/auth/google", "auth.google", ctx.Wrap(authC.SignIn),
		middleware.RateLimit(20, time.Minute))

	public := api.Group("", middleware.Identify(d.Identity))
	public.Get("/shops", "shops.index", ctx.Wrap(catalogC.Shops))
	public.Get("/shops/{id}", "shops.show", ctx.Wrap(catalogC.Shop))
	public.Get("/shops/{id}/products", "shops.products", ctx.Wrap(catalogC.ShopProducts))
	public.Get("/shops/{id}/reviews", "shops.reviews", ctx.Wrap(catalogC.ShopReviews))
	public.Get("/products/{id}", "products.show", ctx.Wrap(catalogC.Product))
	public.Get("/products/{id}/reviews", "products.reviews", ctx.Wrap(catalogC.ProductReviews))
	public.Get("/graphql", "graphql.query", graphql.Handler(d.Schema))
	public.Post("/graphql", "graphql", graphql.Handler(d.Schema))

	user := api.Group("", middleware.Authenticate(d.Identity))
	user.Get("/me", "auth.me", ctx.Wrap(authC.Me))
	user.Post("/pricing/quote", "pricing.quote", ctx.Wrap(orderC.Quote))
	user.Post("/orders", "orders.store", ctx.Wrap(orderC.Store))
	user.Get("/orders", "orders.index", ctx.Wrap(orderC.Index))
	user.Get("/orders/stream", "orders.stream", ctx.Wrap(controllers.Stream(d.Streams)))
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(orderC.Show))
	user.Post("/orders/{id}/transitions", "orders.transition", ctx.Wrap(orderC.Transition))
	user.Get("/orders/{id}/events", "orders.events", ctx.Wrap(orderC.Events))
	user.Get("/orders/{id}/reviewable", "orders.reviewable", ctx.Wrap(orderC.Reviewable))
	user.Post("/reviews", "reviews.store", ctx.Wrap(reviewC.Store))
	user.Put("/reviews/{id}", "reviews.update", ctx.Wrap(reviewC.Update))
	user.Delete("/reviews/{id}", "reviews.destroy", ctx.Wrap(reviewC.Destroy))
	user.Get("/reviews/eligibility", "reviews.eligibility", ctx.Wrap(reviewC.Eligibility))
	user.Get("/ws/orders", "ws.orders", ctx.Wrap(controllers.Live(d.Hub)))

	merchant := user.Group("/merchant", rbac.HasRole(auth.RoleMerchant))
	merchant.Get("/dashboard", "merchant.dashboard", ctx.Wrap(merchantC.Dashboard))
	merchant.Get("/shops", "merchant.shops.index", ctx.Wrap(merchantC.Shops))
	merchant.Post("/shops", "merchant.shops.store", ctx.Wrap(merchantC.CreateShop))
	merchant.Put("/shops/{id}", "merchant.shops.update", ctx.Wrap(merchantC.UpdateShop))
	merchant.Put("/shops/{id}/status", "merchant.shops.status", ctx.Wrap(merchantC.SetHours))
	merchant.Post("/shops/{id}/products", "merchant.products.store", ctx.Wrap(merchantC.CreateProduct))
	merchant.Get("/shops/{id}/offers", "merchant.offers.index", ctx.Wrap(merchantC.Offers))
	merchant.Post("/shops/{id}/offers", "merchant.offers.store", ctx.Wrap(merchantC.CreateOffer))
	merchant.Get("/shops/{id}/orders", "merchant.orders.index", ctx.Wrap(orderC.ShopIndex))
	merchant.Put("/products/{id}", "merchant.products.update", ctx.Wrap(merchantC.UpdateProduct))
	merchant.Delete("/products/{id}", "merchant.products.retire", ctx.Wrap(merchantC.RetireProduct))
	merchant.Post("/products/{id}/images", "merchant.products.images", ctx.Wrap(merchantC.UploadImage))
	merchant.Put("/offers/{id}", "merchant.offers.update", ctx.Wrap(merchantC.UpdateOffer))
	merchant.Delete("/offers/{id}", "merchant.offers.destroy", ctx.Wrap(merchantC.DeleteOffer))

	admin := user.Group("/admin", rbac.HasRole(auth.RoleAdmin))
	admin.Get("/dashboard", "admin.dashboard", ctx.Wrap(adminC.Dashboard))
	admin.Get("/shops", "admin.shops.index", ctx.Wrap(adminC.Shops))
	admin.Put("/shops/{id}/approval", "admin.shops.approval", ctx.Wrap(adminC.SetApproval))
	admin.Get("/users", "admin.users.index", ctx.Wrap(adminC.Users))
	admin.Put("/users/{id}/roles", "admin.users.roles", ctx.Wrap(adminC.SetRoles))
	admin.Put("/users/{id}/active", "admin.users.active", ctx.Wrap(adminC.SetActive))
	admin.Get("/reviews/pending", "admin.reviews.pending", ctx.Wrap(adminC.PendingReviews))
	admin.Put("/reviews/{id}/moderation", "admin.reviews.moderate", ctx.Wrap(adminC.Moderate))
}

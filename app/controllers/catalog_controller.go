package controllers

import (
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

// CatalogController serves the public shop and product pages.
type CatalogController struct {
	catalog *services.CatalogService
	reviews *services.ReviewService
}

func NewCatalogController(catalog *services.CatalogService, reviews *services.ReviewService) *CatalogController {
	return &CatalogController{catalog: catalog, reviews: reviews}
}

func (cc *CatalogController) Shops(c *ctx.Context) {
	page, perPage := c.Page()
	shops, p, err := cc.catalog.ListShops(c.Context(), services.ShopQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		OpenOnly: c.Query("open") == "true" || c.Query("open") == "1",
		Sort:     repositories.ShopSort(c.Query("sort")),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(shops, p)
}

func (cc *CatalogController) Shop(c *ctx.Context) {
	detail, err := cc.catalog.GetShop(c.Context(), c.Param("id"), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(detail)
}

func (cc *CatalogController) ShopProducts(c *ctx.Context) {
	page, perPage := c.Page()
	products, p, err := cc.catalog.ListProducts(c.Context(), c.Param("id"), c.Principal(), services.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(products, p)
}

func (cc *CatalogController) Product(c *ctx.Context) {
	product, err := cc.catalog.GetProduct(c.Context(), c.Param("id"), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

func (cc *CatalogController) ShopReviews(c *ctx.Context) {
	cc.listReviews(c, models.TargetShop)
}

func (cc *CatalogController) ProductReviews(c *ctx.Context) {
	cc.listReviews(c, models.TargetProduct)
}

func (cc *CatalogController) listReviews(c *ctx.Context, t models.ReviewTargetType) {
	page, perPage := c.Page()
	reviews, p, err := cc.reviews.ListForTarget(c.Context(), services.ReviewTarget{Type: t, ID: c.Param("id")}, page, perPage)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(reviews, p)
}

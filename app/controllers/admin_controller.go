package controllers

import (
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

// AdminController serves the marketplace console under /admin.
type AdminController struct {
	identity  *services.IdentityService
	catalog   *services.CatalogService
	reviews   *services.ReviewService
	dashboard *services.DashboardService
}

func NewAdminController(identity *services.IdentityService, catalog *services.CatalogService, reviews *services.ReviewService, dashboard *services.DashboardService) *AdminController {
	return &AdminController{identity: identity, catalog: catalog, reviews: reviews, dashboard: dashboard}
}

func (ac *AdminController) Dashboard(c *ctx.Context) {
	d, err := ac.dashboard.Admin(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(d)
}

func (ac *AdminController) Shops(c *ctx.Context) {
	page, perPage := c.Page()
	shops, p, err := ac.catalog.AdminListShops(c.Context(), models.ShopStatus(c.Query("status")), page, perPage)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(shops, p)
}

type approvalRequest struct {
	Status models.ShopStatus `json:"status" validate:"required,in=pending,approved,rejected,suspended"`
	Reason string            `json:"reason" validate:"max=1000"`
}

func (ac *AdminController) SetApproval(c *ctx.Context) {
	var in approvalRequest
	if !c.BindJSON(&in) {
		return
	}
	shop, err := ac.catalog.SetApproval(c.Context(), c.Param("id"), in.Status, in.Reason)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(shop)
}

func (ac *AdminController) Users(c *ctx.Context) {
	page, perPage := c.Page()
	users, p, err := ac.identity.ListUsers(c.Context(), models.Role(c.Query("role")), page, perPage)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(users, p)
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

func (ac *AdminController) SetRoles(c *ctx.Context) {
	var in rolesRequest
	if !c.BindJSON(&in) {
		return
	}
	user, err := ac.identity.SetRoles(c.Context(), c.Param("id"), in.Roles)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (ac *AdminController) SetActive(c *ctx.Context) {
	var in activeRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.Active == nil {
		c.ValidationError(map[string]string{"active": "The active field is required."})
		return
	}
	user, err := ac.identity.SetActive(c.Context(), c.Param("id"), *in.Active)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (ac *AdminController) PendingReviews(c *ctx.Context) {
	page, perPage := c.Page()
	reviews, p, err := ac.reviews.ListPending(c.Context(), page, perPage)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(reviews, p)
}

type moderationRequest struct {
	Approved *bool `json:"approved"`
}

func (ac *AdminController) Moderate(c *ctx.Context) {
	var in moderationRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.Approved == nil {
		c.ValidationError(map[string]string{"approved": "The approved field is required."})
		return
	}
	review, err := ac.reviews.Moderate(c.Context(), c.Param("id"), *in.Approved)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(review)
}

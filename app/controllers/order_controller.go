package controllers

import (
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type OrderController struct {
	orders  *services.OrderService
	reviews *services.ReviewService
}

func NewOrderController(orders *services.OrderService, reviews *services.ReviewService) *OrderController {
	return &OrderController{orders: orders, reviews: reviews}
}

// orderView is an order with the moves its viewer may make next.
type orderView struct {
	*models.Order
	AllowedTransitions []models.OrderStatus `json:"allowed_transitions"`
}

func (oc *OrderController) view(c *ctx.Context, o *models.Order) orderView {
	return orderView{Order: o, AllowedTransitions: services.AllowedTransitions(o, c.Principal())}
}

func (oc *OrderController) Store(c *ctx.Context) {
	var in services.CreateOrderInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.CreateOrder(c.Context(), c.Principal().UserID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(oc.view(c, order))
}

// Quote prices a cart without placing it.
func (oc *OrderController) Quote(c *ctx.Context) {
	var in services.CreateOrderInput
	if !c.BindJSON(&in) {
		return
	}
	q, err := oc.orders.Quote(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(q)
}

func (oc *OrderController) query(c *ctx.Context) services.OrderQuery {
	page, perPage := c.Page()
	return services.OrderQuery{
		Status:  models.OrderStatus(c.Query("status")),
		Sort:    repositories.OrderSort(c.Query("sort")),
		Page:    page,
		PerPage: perPage,
	}
}

func (oc *OrderController) Index(c *ctx.Context) {
	orders, p, err := oc.orders.ListMine(c.Context(), c.Principal(), oc.query(c))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(orders, p)
}

// ShopIndex lists a shop's orders for its merchant.
func (oc *OrderController) ShopIndex(c *ctx.Context) {
	orders, p, err := oc.orders.ListForShop(c.Context(), c.Principal(), c.Param("id"), oc.query(c))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(orders, p)
}

func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.orders.Get(c.Context(), c.Param("id"), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(oc.view(c, order))
}

type transitionRequest struct {
	Status  models.OrderStatus `json:"status" validate:"required"`
	Version int64              `json:"version" validate:"required,gte=1"`
}

// Transition applies a status change. A 409 with code stale_order_version
// means the caller must reload the order and retry.
func (oc *OrderController) Transition(c *ctx.Context) {
	var in transitionRequest
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.Transition(c.Context(), c.Param("id"), c.Principal(), in.Status, in.Version)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(oc.view(c, order))
}

func (oc *OrderController) Events(c *ctx.Context) {
	events, err := oc.orders.Events(c.Context(), c.Param("id"), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(events)
}

// Reviewable lists what the customer may still review on a delivered order.
func (oc *OrderController) Reviewable(c *ctx.Context) {
	targets, err := oc.reviews.Reviewable(c.Context(), c.Principal().UserID, c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(targets)
}

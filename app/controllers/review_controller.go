package controllers

import (
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

func (rc *ReviewController) Store(c *ctx.Context) {
	var in services.SubmitReviewInput
	if !c.BindJSON(&in) {
		return
	}
	review, err := rc.reviews.SubmitReview(c.Context(), c.Principal().UserID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(review)
}

// Eligibility answers GET /reviews/eligibility?order_id=&target_type=&target_id=.
func (rc *ReviewController) Eligibility(c *ctx.Context) {
	target := services.ReviewTarget{Type: models.ReviewTargetType(c.Query("target_type")), ID: c.Query("target_id")}
	ok, err := rc.reviews.CanReview(c.Context(), c.Principal().UserID, c.Query("order_id"), target)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]bool{"can_review": ok})
}

func (rc *ReviewController) Update(c *ctx.Context) {
	var in services.ReviewEditInput
	if !c.BindJSON(&in) {
		return
	}
	review, err := rc.reviews.UpdateReview(c.Context(), c.Principal().UserID, c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(review)
}

func (rc *ReviewController) Destroy(c *ctx.Context) {
	if err := rc.reviews.DeleteReview(c.Context(), c.Principal().UserID, c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}

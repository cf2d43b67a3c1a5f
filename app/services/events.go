package services

import (
	"context"

	"github.com/shashiranjanraj/shopkart/app/models"
)

// Domain event names fired after the owning transaction commits.
const (
	EventOrderPlaced       = "order.placed"
	EventOrderTransitioned = "order.transitioned"
	EventReviewSubmitted   = "review.submitted"
	EventReviewModerated   = "review.moderated"
	EventReviewEdited      = "review.edited"
	EventReviewDeleted     = "review.deleted"
)

// Publisher delivers domain events. *event.Bus satisfies it.
type Publisher interface {
	Fire(ctx context.Context, name string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Fire(context.Context, string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

type OrderPlaced struct {
	Order *models.Order
}

type OrderTransitioned struct {
	Order   *models.Order
	From    models.OrderStatus
	To      models.OrderStatus
	ActorID string
}

type ReviewSubmitted struct {
	Review *models.Review
}

// ReviewModerated is fired when an admin changes a review's approval, which
// moves the target's rating.
type ReviewModerated struct {
	Review *models.Review
}

// ReviewEdited is fired when an author changes or withdraws a review. The
// Review is the stored row before deletion when Deleted is set.
type ReviewEdited struct {
	Review  *models.Review
	Deleted bool
}

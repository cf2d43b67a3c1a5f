// Package jobs holds the background jobs run by pkg/queue.
package jobs

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

const RecalculateRatingName = "rating.recalculate"

// Recalculator recomputes the stored rating of a product or shop.
type Recalculator interface {
	RecalculateRating(ctx context.Context, t models.ReviewTargetType, targetID string) error
}

// RecalculateRating refreshes the average and count of approved reviews on
// its target.
type RecalculateRating struct {
	TargetType models.ReviewTargetType `json:"target_type"`
	TargetID   string                  `json:"target_id"`

	ratings Recalculator
}

func (*RecalculateRating) JobName() string { return RecalculateRatingName }

func (j *RecalculateRating) Handle(ctx context.Context) error {
	if j.ratings == nil {
		return errors.New("jobs: rating recalculator not wired")
	}
	return j.ratings.RecalculateRating(ctx, j.TargetType, j.TargetID)
}

// Register makes every job known to m.
func Register(m *queue.Manager, ratings Recalculator) {
	m.Register(RecalculateRatingName, func() queue.Job { return &RecalculateRating{ratings: ratings} })
}

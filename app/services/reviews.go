package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

// ReviewTarget names what a review rates.
type ReviewTarget struct {
	Type models.ReviewTargetType `json:"target_type" validate:"required,in=product,shop"`
	ID   string                  `json:"target_id" validate:"required"`
}

type SubmitReviewInput struct {
	OrderID string `json:"order_id" validate:"required"`
	ReviewTarget
	Rating  int    `json:"rating" validate:"required,between=1,5"`
	Title   string `json:"title" validate:"max=255"`
	Comment string `json:"comment" validate:"max=4000"`
}

// ReviewableTarget is one thing a delivered order lets its customer review.
type ReviewableTarget struct {
	ReviewTarget
	Name     string `json:"name"`
	Eligible bool   `json:"eligible"`
	Reviewed bool   `json:"reviewed"`
}

// ReviewService gates and records customer reviews.
type ReviewService struct {
	store  *repositories.Store
	events Publisher
	forget func(ctx context.Context, keys ...string) error
}

func NewReviewService(store *repositories.Store, events Publisher) *ReviewService {
	return &ReviewService{store: store, events: publisherOrNop(events), forget: cache.Forget}
}

// eligibility returns nil when customerID may review target for o, a
// Forbidden error when the order does not qualify and DuplicateReview when
// the review already exists.
func eligibility(ctx context.Context, store *repositories.Store, customerID string, o *models.Order, target ReviewTarget) error {
	if o.CustomerID != customerID {
		return apperr.New(apperr.Forbidden, "order %s is not yours", o.Number)
	}
	if o.Status != models.StatusDelivered {
		return apperr.New(apperr.Forbidden, "order %s has not been delivered", o.Number)
	}
	switch target.Type {
	case models.TargetProduct:
		if !o.ContainsProduct(target.ID) {
			return apperr.New(apperr.Forbidden, "product %s is not part of order %s", target.ID, o.Number)
		}
	case models.TargetShop:
		if o.ShopID != target.ID {
			return apperr.New(apperr.Forbidden, "order %s was not placed at shop %s", o.Number, target.ID)
		}
	default:
		return apperr.Invalid(map[string]string{"target_type": "The target_type must be one of: product, shop."})
	}

	exists, err := store.Reviews().Exists(ctx, customerID, o.ID, target.Type, target.ID)
	if err != nil {
		return fmt.Errorf("reviews: check existing: %w", err)
	}
	if exists {
		return apperr.New(apperr.DuplicateReview, "you already reviewed this %s for order %s", target.Type, o.Number)
	}
	return nil
}

// CanReview reports whether customerID may review target for orderID now.
// Only a missing order or a storage failure is an error.
func (s *ReviewService) CanReview(ctx context.Context, customerID, orderID string, target ReviewTarget) (bool, error) {
	o, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return eligible(eligibility(ctx, s.store, customerID, o, target))
}

func eligible(err error) (bool, error) {
	switch apperr.KindOf(err) {
	case "":
		return true, nil
	case apperr.Forbidden, apperr.DuplicateReview, apperr.Validation:
		return false, nil
	}
	return false, err
}

// SubmitReview re-checks eligibility and inserts the review in one
// transaction. The unique index on (author, order, target) settles races
// between concurrent submissions.
func (s *ReviewService) SubmitReview(ctx context.Context, customerID string, in SubmitReviewInput) (*models.Review, error) {
	if fields := validateReview(in); len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	var review *models.Review
	err := s.store.Tx(ctx, func(tx *repositories.Store) error {
		o, err := tx.Orders().FindByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if err := eligibility(ctx, tx, customerID, o, in.ReviewTarget); err != nil {
			return err
		}

		rv := &models.Review{
			AuthorID:   customerID,
			OrderID:    o.ID,
			TargetType: in.Type,
			TargetID:   in.ID,
			ShopID:     o.ShopID,
			Rating:     in.Rating,
			Title:      strings.TrimSpace(in.Title),
			Comment:    strings.TrimSpace(in.Comment),
			IsVerified: true,
			IsApproved: !config.ReviewsRequireModeration(),
		}
		if err := tx.Reviews().Create(ctx, rv); err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Wrap(apperr.DuplicateReview, err, "review already submitted")
			}
			return fmt.Errorf("reviews: create: %w", err)
		}
		review = rv
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewsSubmitted.WithLabelValues(string(review.TargetType)).Inc()
	logger.WithCtx(ctx).Info("review submitted",
		"review_id", review.ID, "order_id", review.OrderID, "target_type", review.TargetType,
		"target_id", review.TargetID, "approved", review.IsApproved)
	s.events.Fire(ctx, EventReviewSubmitted, ReviewSubmitted{Review: review})
	return review, nil
}

func validateReview(in SubmitReviewInput) map[string]string {
	fields := map[string]string{}
	if in.Rating < 1 || in.Rating > 5 {
		fields["rating"] = "The rating must be between 1 and 5."
	}
	if !in.Type.Valid() {
		fields["target_type"] = "The target_type must be one of: product, shop."
	}
	if in.ID == "" {
		fields["target_id"] = "The target_id field is required."
	}
	if in.OrderID == "" {
		fields["order_id"] = "The order_id field is required."
	}
	return fields
}

// ReviewEditInput is what an author may change on a review.
type ReviewEditInput struct {
	Rating  int    `json:"rating" validate:"required,between=1,5"`
	Title   string `json:"title" validate:"max=255"`
	Comment string `json:"comment" validate:"max=4000"`
}

// authoredReview loads reviewID and checks that authorID wrote it.
func (s *ReviewService) authoredReview(ctx context.Context, authorID, reviewID string) (*models.Review, error) {
	rv, err := s.store.Reviews().FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rv.AuthorID != authorID {
		return nil, apperr.New(apperr.Forbidden, "only the author can change this review")
	}
	return rv, nil
}

// UpdateReview rewrites the rating and text of the author's own review.
// Moderation state is kept.
func (s *ReviewService) UpdateReview(ctx context.Context, authorID, reviewID string, in ReviewEditInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Invalid(map[string]string{"rating": "The rating must be between 1 and 5."})
	}
	rv, err := s.authoredReview(ctx, authorID, reviewID)
	if err != nil {
		return nil, err
	}
	rv.Rating, rv.Title, rv.Comment = in.Rating, strings.TrimSpace(in.Title), strings.TrimSpace(in.Comment)
	if err := s.store.Reviews().Update(ctx, rv.ID, map[string]any{
		"rating":  rv.Rating,
		"title":   rv.Title,
		"comment": rv.Comment,
	}); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("review edited", "review_id", rv.ID, "rating", rv.Rating)
	s.events.Fire(ctx, EventReviewEdited, ReviewEdited{Review: rv})
	return rv, nil
}

// DeleteReview withdraws the author's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, authorID, reviewID string) error {
	rv, err := s.authoredReview(ctx, authorID, reviewID)
	if err != nil {
		return err
	}
	if err := s.store.Reviews().Delete(ctx, rv.ID); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("review deleted", "review_id", rv.ID, "target_type", rv.TargetType, "target_id", rv.TargetID)
	s.events.Fire(ctx, EventReviewDeleted, ReviewEdited{Review: rv, Deleted: true})
	return nil
}

// Reviewable lists the shop and each product of a delivered order with the
// customer's review status for each.
func (s *ReviewService) Reviewable(ctx context.Context, customerID, orderID string) ([]ReviewableTarget, error) {
	o, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, apperr.New(apperr.Forbidden, "order %s is not yours", o.Number)
	}

	targets := []ReviewableTarget{{ReviewTarget: ReviewTarget{Type: models.TargetShop, ID: o.ShopID}}}
	if shop, err := s.store.Shops().FindByID(ctx, o.ShopID); err == nil {
		targets[0].Name = shop.Name
	}
	seen := map[string]bool{}
	for _, it := range o.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		targets = append(targets, ReviewableTarget{
			ReviewTarget: ReviewTarget{Type: models.TargetProduct, ID: it.ProductID},
			Name:         it.ProductName,
		})
	}

	for i := range targets {
		err := eligibility(ctx, s.store, customerID, o, targets[i].ReviewTarget)
		targets[i].Reviewed = errors.Is(err, apperr.ErrDuplicateReview)
		if targets[i].Eligible, err = eligible(err); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// Moderate approves or hides a review.
func (s *ReviewService) Moderate(ctx context.Context, reviewID string, approved bool) (*models.Review, error) {
	if err := s.store.Reviews().SetApproved(ctx, reviewID, approved); err != nil {
		return nil, err
	}
	rv, err := s.store.Reviews().FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("review moderated", "review_id", rv.ID, "approved", approved)
	s.events.Fire(ctx, EventReviewModerated, ReviewModerated{Review: rv})
	return rv, nil
}

// RecalculateRating recomputes the average and count of approved reviews
// for a product or shop and stores them on the target.
func (s *ReviewService) RecalculateRating(ctx context.Context, t models.ReviewTargetType, targetID string) error {
	avg, n, err := s.store.Reviews().Aggregate(ctx, t, targetID)
	if err != nil {
		return fmt.Errorf("reviews: aggregate: %w", err)
	}
	avg = math.Round(avg*100) / 100

	var key string
	switch t {
	case models.TargetProduct:
		err = s.store.Products().SetRating(ctx, targetID, avg, n)
		key = productKey(targetID)
	case models.TargetShop:
		err = s.store.Shops().SetRating(ctx, targetID, avg, n)
		key = shopKey(targetID)
	default:
		return apperr.New(apperr.Validation, "unknown review target %q", t)
	}
	if err != nil {
		return err
	}
	_ = s.forget(ctx, key)
	logger.WithCtx(ctx).Debug("rating recalculated", "target_type", t, "target_id", targetID, "rating", avg, "reviews", n)
	return nil
}

func (s *ReviewService) ListForTarget(ctx context.Context, target ReviewTarget, page, perPage int) ([]models.Review, orm.Pagination, error) {
	return s.store.Reviews().ListForTarget(ctx, target.Type, target.ID, page, perPage)
}

func (s *ReviewService) ListPending(ctx context.Context, page, perPage int) ([]models.Review, orm.Pagination, error) {
	return s.store.Reviews().ListPending(ctx, page, perPage)
}

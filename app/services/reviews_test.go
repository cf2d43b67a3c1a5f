package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/database"
)

func (f *orderFixture) deliver(t *testing.T, o *models.Order) *models.Order {
	t.Helper()
	var err error
	for _, to := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered,
	} {
		o, err = f.svc.Transition(context.Background(), o.ID, f.merchant, to, o.Version)
		require.NoError(t, err)
	}
	return o
}

func newReviewService(f *orderFixture) (*ReviewService, *recorder) {
	events := &recorder{}
	return NewReviewService(repositories.NewStore(f.db), events), events
}

func TestReviewOnlyOncePerTarget(t *testing.T) {
	f := newOrderFixture(t)
	svc, events := newReviewService(f)
	ctx := context.Background()
	o := f.deliver(t, f.place(t))
	target := ReviewTarget{Type: models.TargetProduct, ID: f.apple.ID}

	ok, err := svc.CanReview(ctx, f.customer.UserID, o.ID, target)
	require.NoError(t, err)
	assert.True(t, ok)

	rv, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: o.ID, ReviewTarget: target, Rating: 4, Title: " crisp "})
	require.NoError(t, err)
	assert.True(t, rv.IsVerified)
	assert.True(t, rv.IsApproved)
	assert.Equal(t, "crisp", rv.Title)
	assert.Equal(t, f.shop.ID, rv.ShopID)
	assert.Equal(t, []string{EventReviewSubmitted}, events.names())

	ok, err = svc.CanReview(ctx, f.customer.UserID, o.ID, target)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: o.ID, ReviewTarget: target, Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrDuplicateReview)
	assert.EqualValues(t, 1, testsupport.Count(t, f.db, &models.Review{}))

	shop := ReviewTarget{Type: models.TargetShop, ID: f.shop.ID}
	ok, err = svc.CanReview(ctx, f.customer.UserID, o.ID, shop)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReviewRequiresDeliveredOwnOrder(t *testing.T) {
	f := newOrderFixture(t)
	svc, _ := newReviewService(f)
	ctx := context.Background()
	target := ReviewTarget{Type: models.TargetProduct, ID: f.apple.ID}

	pending := f.place(t)
	ok, err := svc.CanReview(ctx, f.customer.UserID, pending.ID, target)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: pending.ID, ReviewTarget: target, Rating: 3})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	delivered := f.deliver(t, f.place(t))
	stranger := testsupport.User(t, f.db, models.RoleCustomer)
	_, err = svc.SubmitReview(ctx, stranger.ID, SubmitReviewInput{OrderID: delivered.ID, ReviewTarget: target, Rating: 3})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	notBought := ReviewTarget{Type: models.TargetProduct, ID: f.bread.ID}
	ok, err = svc.CanReview(ctx, f.customer.UserID, delivered.ID, notBought)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: delivered.ID, ReviewTarget: notBought, Rating: 3})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.Zero(t, testsupport.Count(t, f.db, &models.Review{}))

	_, err = svc.CanReview(ctx, f.customer.UserID, "missing", target)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitReviewValidatesInput(t *testing.T) {
	f := newOrderFixture(t)
	svc, _ := newReviewService(f)
	o := f.deliver(t, f.place(t))

	_, err := svc.SubmitReview(context.Background(), f.customer.UserID, SubmitReviewInput{
		OrderID:      o.ID,
		ReviewTarget: ReviewTarget{Type: "courier", ID: "x"},
		Rating:       6,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "rating")
	assert.Contains(t, appErr.Fields, "target_type")
}

func TestReviewableListsShopAndProducts(t *testing.T) {
	f := newOrderFixture(t)
	svc, _ := newReviewService(f)
	ctx := context.Background()
	o := f.deliver(t, f.place(t))

	_, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{
		OrderID: o.ID, ReviewTarget: ReviewTarget{Type: models.TargetShop, ID: f.shop.ID}, Rating: 5,
	})
	require.NoError(t, err)

	targets, err := svc.Reviewable(ctx, f.customer.UserID, o.ID)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, models.TargetShop, targets[0].Type)
	assert.True(t, targets[0].Reviewed)
	assert.False(t, targets[0].Eligible)

	assert.Equal(t, f.apple.ID, targets[1].ID)
	assert.Equal(t, "apple", targets[1].Name)
	assert.True(t, targets[1].Eligible)
	assert.False(t, targets[1].Reviewed)
}

func TestModerationAndRatingRecalculation(t *testing.T) {
	config.Set("REVIEWS_REQUIRE_MODERATION", "true")
	t.Cleanup(func() { config.Unset("REVIEWS_REQUIRE_MODERATION") })

	f := newOrderFixture(t)
	svc, events := newReviewService(f)
	ctx := context.Background()
	target := ReviewTarget{Type: models.TargetProduct, ID: f.apple.ID}

	first := f.deliver(t, f.place(t))
	second := f.deliver(t, f.place(t))
	r1, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: first.ID, ReviewTarget: target, Rating: 5})
	require.NoError(t, err)
	assert.False(t, r1.IsApproved)
	r2, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: second.ID, ReviewTarget: target, Rating: 2})
	require.NoError(t, err)

	pending, page, err := svc.ListPending(ctx, 1, 20)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.EqualValues(t, 2, page.Total)

	require.NoError(t, svc.RecalculateRating(ctx, models.TargetProduct, f.apple.ID))
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", f.apple.ID).Error)
	assert.Zero(t, p.TotalReviews)

	_, err = svc.Moderate(ctx, r1.ID, true)
	require.NoError(t, err)
	approved, err := svc.Moderate(ctx, r2.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.Contains(t, events.names(), EventReviewModerated)

	require.NoError(t, svc.RecalculateRating(ctx, models.TargetProduct, f.apple.ID))
	require.NoError(t, f.db.First(&p, "id = ?", f.apple.ID).Error)
	assert.Equal(t, 2, p.TotalReviews)
	assert.InDelta(t, 3.5, p.Rating, 0.001)

	public, _, err := svc.ListForTarget(ctx, target, 1, 20)
	require.NoError(t, err)
	assert.Len(t, public, 2)
}

func TestReviewUniqueIndexRejectsSecondInsert(t *testing.T) {
	f := newOrderFixture(t)
	o := f.deliver(t, f.place(t))
	store := repositories.NewStore(f.db)
	ctx := context.Background()
	review := func() *models.Review {
		return &models.Review{
			AuthorID:   f.customer.UserID,
			OrderID:    o.ID,
			TargetType: models.TargetProduct,
			TargetID:   f.apple.ID,
			ShopID:     f.shop.ID,
			Rating:     4,
		}
	}

	require.NoError(t, store.Reviews().Create(ctx, review()))
	err := store.Reviews().Create(ctx, review())
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
}

// A concurrent writer that commits between the existence check and the
// insert must surface as DuplicateReview with nothing persisted.
func TestSubmitReviewLosingInsertRaceIsDuplicate(t *testing.T) {
	f := newOrderFixture(t)
	svc, events := newReviewService(f)
	o := f.deliver(t, f.place(t))
	target := ReviewTarget{Type: models.TargetProduct, ID: f.apple.ID}

	var raced bool
	err := f.db.Callback().Create().Before("gorm:create").Register("test:rival_review", func(db *gorm.DB) {
		rv, ok := db.Statement.Model.(*models.Review)
		if !ok || raced {
			return
		}
		raced = true
		rival := *rv
		rival.ID = ""
		if err := db.Session(&gorm.Session{NewDB: true}).Create(&rival).Error; err != nil {
			_ = db.AddError(err)
		}
	})
	require.NoError(t, err)

	_, err = svc.SubmitReview(context.Background(), f.customer.UserID, SubmitReviewInput{OrderID: o.ID, ReviewTarget: target, Rating: 4})
	require.True(t, raced)
	assert.ErrorIs(t, err, apperr.ErrDuplicateReview)
	assert.Zero(t, testsupport.Count(t, f.db, &models.Review{}))
	assert.Empty(t, events.names())
}

func TestAuthorCanEditAndDeleteOwnReview(t *testing.T) {
	f := newOrderFixture(t)
	svc, events := newReviewService(f)
	ctx := context.Background()
	o := f.deliver(t, f.place(t))
	target := ReviewTarget{Type: models.TargetShop, ID: f.shop.ID}

	rv, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{OrderID: o.ID, ReviewTarget: target, Rating: 2})
	require.NoError(t, err)

	edited, err := svc.UpdateReview(ctx, f.customer.UserID, rv.ID, ReviewEditInput{Rating: 5, Title: " better now "})
	require.NoError(t, err)
	assert.Equal(t, 5, edited.Rating)
	assert.Equal(t, "better now", edited.Title)
	assert.True(t, edited.IsApproved)

	var stored models.Review
	require.NoError(t, f.db.First(&stored, "id = ?", rv.ID).Error)
	assert.Equal(t, 5, stored.Rating)

	require.NoError(t, svc.DeleteReview(ctx, f.customer.UserID, rv.ID))
	assert.Zero(t, testsupport.Count(t, f.db, &models.Review{}))
	assert.Equal(t, []string{EventReviewSubmitted, EventReviewEdited, EventReviewDeleted}, events.names())

	ok, err := svc.CanReview(ctx, f.customer.UserID, o.ID, target)
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.DeleteReview(ctx, f.customer.UserID, rv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOnlyTheAuthorEditsAReview(t *testing.T) {
	f := newOrderFixture(t)
	svc, events := newReviewService(f)
	ctx := context.Background()
	o := f.deliver(t, f.place(t))

	rv, err := svc.SubmitReview(ctx, f.customer.UserID, SubmitReviewInput{
		OrderID: o.ID, ReviewTarget: ReviewTarget{Type: models.TargetProduct, ID: f.apple.ID}, Rating: 4,
	})
	require.NoError(t, err)

	_, err = svc.UpdateReview(ctx, f.merchant.UserID, rv.ID, ReviewEditInput{Rating: 1})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteReview(ctx, f.merchant.UserID, rv.ID), apperr.ErrForbidden)

	_, err = svc.UpdateReview(ctx, f.customer.UserID, rv.ID, ReviewEditInput{Rating: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateReview(ctx, f.customer.UserID, rv.ID, ReviewEditInput{Rating: 6})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var stored models.Review
	require.NoError(t, f.db.First(&stored, "id = ?", rv.ID).Error)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, []string{EventReviewSubmitted}, events.names())
}

func TestRecalculatingARatingDropsTheCachedTarget(t *testing.T) {
	f := newOrderFixture(t)
	svc, _ := newReviewService(f)
	var forgotten []string
	svc.forget = func(_ context.Context, keys ...string) error {
		forgotten = append(forgotten, keys...)
		return nil
	}
	ctx := context.Background()

	require.NoError(t, svc.RecalculateRating(ctx, models.TargetProduct, f.apple.ID))
	require.NoError(t, svc.RecalculateRating(ctx, models.TargetShop, f.shop.ID))
	assert.Equal(t, []string{productKey(f.apple.ID), shopKey(f.shop.ID)}, forgotten)
}

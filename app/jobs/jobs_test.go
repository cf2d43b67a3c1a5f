package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

type fakeRatings struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRatings) RecalculateRating(_ context.Context, t models.ReviewTargetType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(t)+":"+id)
	return nil
}

func TestRecalculateRatingRoundTripsThroughQueue(t *testing.T) {
	ctx := context.Background()
	m := queue.New(queue.NewMemoryDriver(4))
	m.SetRetry(1, time.Millisecond)
	ratings := &fakeRatings{}
	Register(m, ratings)

	require.NoError(t, m.Dispatch(ctx, &RecalculateRating{TargetType: models.TargetShop, TargetID: "s1"}))
	took, err := m.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, took)
	assert.Equal(t, []string{"shop:s1"}, ratings.calls)
}

func TestUnwiredJobFails(t *testing.T) {
	err := (&RecalculateRating{TargetType: models.TargetProduct, TargetID: "p"}).Handle(context.Background())
	assert.Error(t, err)
}

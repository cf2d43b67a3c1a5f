package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/workerpool"
)

func TestInlineDelivery(t *testing.T) {
	bus := event.NewBus(nil)
	var got []any
	bus.Listen("order.placed", func(_ context.Context, p any) { got = append(got, p) })
	bus.Listen("order.placed", func(context.Context, any) { panic("listener bug") })

	bus.Fire(context.Background(), "order.placed", "o-1")
	bus.Fire(context.Background(), "unheard", "x")

	assert.Equal(t, []any{"o-1"}, got)
}

func TestPooledDeliverySurvivesCancel(t *testing.T) {
	pool := workerpool.New("events", 2)
	defer pool.Shutdown()
	bus := event.NewBus(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	errCh := make(chan error, 1)
	bus.Listen("review.submitted", func(ctx context.Context, _ any) {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		errCh <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Fire(ctx, "review.submitted", nil)
	cancel()

	wg.Wait()
	assert.NoError(t, <-errCh)
}

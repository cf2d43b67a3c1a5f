// Package event is an in-process publish/subscribe bus for domain events.
//
// Listeners run after the publishing transaction has committed and are
// never part of its outcome. With a worker pool they run asynchronously;
// without one they run inline, which is what tests use.
//
//	bus := event.NewBus(workerpool.New("events", 8))
//	bus.Listen("order.transitioned", func(ctx context.Context, payload any) { ... })
//	bus.Fire(ctx, "order.transitioned", payload)
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Bus dispatches named events to their listeners.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     *workerpool.Pool
}

// NewBus returns a bus that runs listeners on pool, or inline when pool is nil.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{handlers: map[string][]Handler{}, pool: pool}
}

// Listen registers h for name.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Fire delivers payload to every listener of name. The listeners get a
// context that outlives the caller's cancellation but keeps its values.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[name]...)
	b.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, h := range hs {
		task := func() { safeCall(ctx, name, h, payload) }
		if b.pool == nil {
			task()
			continue
		}
		if err := b.pool.Submit(task); err != nil {
			if !errors.Is(err, workerpool.ErrPoolFull) {
				logger.WithCtx(ctx).Warn("event: pool unavailable, running inline", "event", name, "error", err)
			}
			task()
		}
	}
}

func safeCall(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "error", fmt.Sprintf("%v", r))
		}
	}()
	h(ctx, payload)
}

package listeners

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/jobs"
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/audit"
	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

type pushed struct {
	user string
	env  ws.Envelope
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *fakePusher) Publish(userID string, v ws.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{userID, v})
}

type fakeQueue struct {
	jobs []queue.Job
}

func (q *fakeQueue) Dispatch(_ context.Context, j queue.Job) error {
	q.jobs = append(q.jobs, j)
	return nil
}

func setup() (*event.Bus, *fakePusher, *audit.Memory, *fakeQueue) {
	bus := event.NewBus(nil)
	push, trail, q := &fakePusher{}, &audit.Memory{}, &fakeQueue{}
	Register(bus, Deps{
		Push:    push,
		Audit:   trail,
		Queue:   q,
		OwnerOf: func(context.Context, string) (string, error) { return "owner", nil },
	})
	return bus, push, trail, q
}

func TestTransitionPushesToCustomerAndOwner(t *testing.T) {
	bus, push, trail, _ := setup()
	order := &models.Order{Base: models.Base{ID: "o1"}, CustomerID: "cust", ShopID: "s1", Status: models.StatusConfirmed, Version: 2}

	bus.Fire(context.Background(), services.EventOrderTransitioned, services.OrderTransitioned{
		Order: order, From: models.StatusPlaced, To: models.StatusConfirmed, ActorID: "owner",
	})

	require.Len(t, push.sent, 2)
	assert.Equal(t, "cust", push.sent[0].user)
	assert.Equal(t, "owner", push.sent[1].user)
	frame, ok := push.sent[0].env.Data.(OrderFrame)
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, frame.Status)
	assert.Equal(t, models.StatusPlaced, frame.From)

	entries := trail.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, services.EventOrderTransitioned, entries[0].Action)
	assert.Equal(t, "owner", entries[0].ActorID)
}

func TestApprovedReviewQueuesRecalculation(t *testing.T) {
	bus, _, trail, q := setup()
	rv := &models.Review{Base: models.Base{ID: "r1"}, TargetType: models.TargetProduct, TargetID: "p1", IsApproved: true}

	bus.Fire(context.Background(), services.EventReviewSubmitted, services.ReviewSubmitted{Review: rv})
	require.Len(t, q.jobs, 1)
	job, ok := q.jobs[0].(*jobs.RecalculateRating)
	require.True(t, ok)
	assert.Equal(t, "p1", job.TargetID)

	rv.IsApproved = false
	bus.Fire(context.Background(), services.EventReviewSubmitted, services.ReviewSubmitted{Review: rv})
	assert.Len(t, q.jobs, 1)

	bus.Fire(context.Background(), services.EventReviewModerated, services.ReviewModerated{Review: rv})
	assert.Len(t, q.jobs, 2)
	assert.Len(t, trail.Entries(), 3)
}

func TestFanoutReachesEveryPusher(t *testing.T) {
	a, b := &fakePusher{}, &fakePusher{}
	Fanout{a, b}.Publish("u1", ws.Envelope{Type: "order.status"})
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestEditedAndDeletedReviewsQueueRecalculation(t *testing.T) {
	bus, _, trail, q := setup()
	rv := &models.Review{Base: models.Base{ID: "r1"}, AuthorID: "cust", TargetType: models.TargetShop, TargetID: "s1", Rating: 2}

	bus.Fire(context.Background(), services.EventReviewEdited, services.ReviewEdited{Review: rv})
	bus.Fire(context.Background(), services.EventReviewDeleted, services.ReviewEdited{Review: rv, Deleted: true})

	require.Len(t, q.jobs, 2)
	for _, j := range q.jobs {
		job, ok := j.(*jobs.RecalculateRating)
		require.True(t, ok)
		assert.Equal(t, models.TargetShop, job.TargetType)
		assert.Equal(t, "s1", job.TargetID)
	}
	entries := trail.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, services.EventReviewEdited, entries[0].Action)
	assert.Equal(t, services.EventReviewDeleted, entries[1].Action)
	assert.Equal(t, "cust", entries[1].ActorID)
}

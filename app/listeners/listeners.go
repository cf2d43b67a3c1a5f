// Package listeners reacts to domain events once their transaction has
// committed: live pushes, the audit trail and rating refreshes.
package listeners

import (
	"context"

	"github.com/shashiranjanraj/shopkart/app/jobs"
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/audit"
	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

// Pusher delivers a frame to every live connection of a user.
type Pusher interface {
	Publish(userID string, v ws.Envelope)
}

// Fanout publishes to every pusher in turn.
type Fanout []Pusher

func (f Fanout) Publish(userID string, v ws.Envelope) {
	for _, p := range f {
		p.Publish(userID, v)
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// OwnerOf returns the user who owns a shop.
type OwnerOf func(ctx context.Context, shopID string) (string, error)

type Deps struct {
	Push    Pusher
	Audit   audit.Sink
	Queue   Dispatcher
	OwnerOf OwnerOf
}

// OrderFrame is what live clients receive about an order.
type OrderFrame struct {
	OrderID string             `json:"order_id"`
	Number  string             `json:"number"`
	ShopID  string             `json:"shop_id"`
	From    models.OrderStatus `json:"from,omitempty"`
	Status  models.OrderStatus `json:"status"`
	Version int64              `json:"version"`
}

// Register subscribes every listener on bus.
func Register(bus *event.Bus, d Deps) {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	bus.Listen(services.EventOrderPlaced, d.orderPlaced)
	bus.Listen(services.EventOrderTransitioned, d.orderTransitioned)
	bus.Listen(services.EventReviewSubmitted, d.reviewSubmitted)
	bus.Listen(services.EventReviewModerated, d.reviewModerated)
	bus.Listen(services.EventReviewEdited, d.reviewEdited)
	bus.Listen(services.EventReviewDeleted, d.reviewEdited)
}

func (d Deps) orderPlaced(ctx context.Context, payload any) {
	ev, ok := payload.(services.OrderPlaced)
	if !ok {
		return
	}
	o := ev.Order
	d.Audit.Record(ctx, audit.Entry{
		Action:    services.EventOrderPlaced,
		Subject:   "order",
		SubjectID: o.ID,
		ActorID:   o.CustomerID,
		Data:      map[string]any{"shop_id": o.ShopID, "total": o.Total.String(), "items": len(o.Items)},
	})
	d.pushOrder(ctx, "order.placed", o, OrderFrame{
		OrderID: o.ID, Number: o.Number, ShopID: o.ShopID, Status: o.Status, Version: o.Version,
	})
}

func (d Deps) orderTransitioned(ctx context.Context, payload any) {
	ev, ok := payload.(services.OrderTransitioned)
	if !ok {
		return
	}
	o := ev.Order
	d.Audit.Record(ctx, audit.Entry{
		Action:    services.EventOrderTransitioned,
		Subject:   "order",
		SubjectID: o.ID,
		ActorID:   ev.ActorID,
		Data:      map[string]any{"from": string(ev.From), "to": string(ev.To), "version": o.Version},
	})
	d.pushOrder(ctx, "order.status", o, OrderFrame{
		OrderID: o.ID, Number: o.Number, ShopID: o.ShopID, From: ev.From, Status: ev.To, Version: o.Version,
	})
}

// pushOrder sends the frame to the customer and the shop owner.
func (d Deps) pushOrder(ctx context.Context, kind string, o *models.Order, frame OrderFrame) {
	if d.Push == nil {
		return
	}
	env := ws.Envelope{Type: kind, Data: frame}
	d.Push.Publish(o.CustomerID, env)
	if d.OwnerOf == nil {
		return
	}
	owner, err := d.OwnerOf(ctx, o.ShopID)
	if err != nil {
		logger.WithCtx(ctx).Warn("listeners: shop owner lookup failed", "shop_id", o.ShopID, "error", err)
		return
	}
	if owner != o.CustomerID {
		d.Push.Publish(owner, env)
	}
}

func (d Deps) reviewSubmitted(ctx context.Context, payload any) {
	ev, ok := payload.(services.ReviewSubmitted)
	if !ok {
		return
	}
	rv := ev.Review
	d.Audit.Record(ctx, audit.Entry{
		Action:    services.EventReviewSubmitted,
		Subject:   "review",
		SubjectID: rv.ID,
		ActorID:   rv.AuthorID,
		Data:      map[string]any{"target_type": string(rv.TargetType), "target_id": rv.TargetID, "rating": rv.Rating},
	})
	if rv.IsApproved {
		d.recalculate(ctx, rv)
	}
}

func (d Deps) reviewModerated(ctx context.Context, payload any) {
	ev, ok := payload.(services.ReviewModerated)
	if !ok {
		return
	}
	rv := ev.Review
	d.Audit.Record(ctx, audit.Entry{
		Action:    services.EventReviewModerated,
		Subject:   "review",
		SubjectID: rv.ID,
		Data:      map[string]any{"approved": rv.IsApproved},
	})
	d.recalculate(ctx, rv)
}

func (d Deps) reviewEdited(ctx context.Context, payload any) {
	ev, ok := payload.(services.ReviewEdited)
	if !ok {
		return
	}
	rv := ev.Review
	action := services.EventReviewEdited
	if ev.Deleted {
		action = services.EventReviewDeleted
	}
	d.Audit.Record(ctx, audit.Entry{
		Action:    action,
		Subject:   "review",
		SubjectID: rv.ID,
		ActorID:   rv.AuthorID,
		Data:      map[string]any{"target_type": string(rv.TargetType), "target_id": rv.TargetID, "rating": rv.Rating},
	})
	d.recalculate(ctx, rv)
}

func (d Deps) recalculate(ctx context.Context, rv *models.Review) {
	if d.Queue == nil {
		return
	}
	job := &jobs.RecalculateRating{TargetType: rv.TargetType, TargetID: rv.TargetID}
	if err := d.Queue.Dispatch(ctx, job); err != nil {
		logger.WithCtx(ctx).Error("listeners: dispatch rating job failed",
			"target_type", rv.TargetType, "target_id", rv.TargetID, "error", err)
	}
}

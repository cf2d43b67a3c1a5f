package services

import (
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

// next is the main delivery chain.
var next = map[models.OrderStatus]models.OrderStatus{
	models.StatusPlaced:         models.StatusConfirmed,
	models.StatusConfirmed:      models.StatusPreparing,
	models.StatusPreparing:      models.StatusOutForDelivery,
	models.StatusOutForDelivery: models.StatusDelivered,
}

// customerCancellable are the states a customer may still cancel from.
var customerCancellable = map[models.OrderStatus]bool{
	models.StatusPlaced:    true,
	models.StatusConfirmed: true,
}

// CanFollow reports whether to is a legal successor of from, regardless of
// who asks.
func CanFollow(from, to models.OrderStatus) bool {
	if next[from] == to && to != "" {
		return true
	}
	return to == models.StatusCancelled && (customerCancellable[from] || from == models.StatusPreparing)
}

type relation struct {
	customer bool
	merchant bool
	admin    bool
}

func relationTo(o *models.Order, actor *auth.Principal) relation {
	if actor == nil {
		return relation{}
	}
	return relation{
		customer: o.CustomerID == actor.UserID,
		merchant: actor.OwnsShop(o.ShopID),
		admin:    actor.IsAdmin(),
	}
}

func (r relation) any() bool { return r.customer || r.merchant || r.admin }

// authorizeTransition checks the authority matrix for moving o to target.
// Actors unrelated to the order get Forbidden; related actors asking for a
// move they may not make get InvalidTransition.
func authorizeTransition(o *models.Order, actor *auth.Principal, target models.OrderStatus) error {
	rel := relationTo(o, actor)
	if !rel.any() {
		return apperr.New(apperr.Forbidden, "not a party to order %s", o.Number)
	}
	if allowed(o.Status, target, rel) {
		return nil
	}
	return apperr.New(apperr.InvalidTransition, "cannot move order from %s to %s", o.Status, target)
}

func allowed(from, to models.OrderStatus, rel relation) bool {
	staff := rel.merchant || rel.admin
	switch {
	case from.Terminal():
		return false
	case next[from] == to:
		return staff
	case to == models.StatusCancelled && customerCancellable[from]:
		return rel.customer || staff
	case to == models.StatusCancelled && from == models.StatusPreparing:
		return staff
	}
	return false
}

// AllowedTransitions lists the states actor may move o to right now.
func AllowedTransitions(o *models.Order, actor *auth.Principal) []models.OrderStatus {
	rel := relationTo(o, actor)
	out := []models.OrderStatus{}
	for _, to := range models.Statuses {
		if allowed(o.Status, to, rel) {
			out = append(out, to)
		}
	}
	return out
}

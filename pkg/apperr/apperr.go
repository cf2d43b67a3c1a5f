// Package apperr defines the typed errors returned by shopkart services.
//
// Every error carries a Kind. Handlers map the kind to an HTTP status with
// HTTPStatus and callers decide whether to retry with Retryable:
//
//	order, err := orders.Transition(ctx, id, actor, models.StatusConfirmed, version)
//	switch {
//	case apperr.Retryable(err):
//	    // reload the order and try again
//	case errors.Is(err, apperr.ErrInvalidTransition):
//	    // permanent, surface to the user
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	Unauthenticated   Kind = "unauthenticated"
	Forbidden         Kind = "forbidden"
	NotFound          Kind = "not_found"
	InvalidTransition Kind = "invalid_transition"
	StaleOrderVersion Kind = "stale_order_version"
	EmptyCart         Kind = "empty_cart"
	ShopClosed        Kind = "shop_closed"
	ShopNotApproved   Kind = "shop_not_approved"
	ProductNotInShop  Kind = "product_not_in_shop"
	DuplicateReview   Kind = "duplicate_review"
	Validation        Kind = "validation_error"
	OutOfStock        Kind = "out_of_stock"
	Internal          Kind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnauthenticated   = &Error{Kind: Unauthenticated}
	ErrForbidden         = &Error{Kind: Forbidden}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInvalidTransition = &Error{Kind: InvalidTransition}
	ErrStaleOrderVersion = &Error{Kind: StaleOrderVersion}
	ErrEmptyCart         = &Error{Kind: EmptyCart}
	ErrShopClosed        = &Error{Kind: ShopClosed}
	ErrShopNotApproved   = &Error{Kind: ShopNotApproved}
	ErrProductNotInShop  = &Error{Kind: ProductNotInShop}
	ErrDuplicateReview   = &Error{Kind: DuplicateReview}
	ErrValidation        = &Error{Kind: Validation}
	ErrOutOfStock        = &Error{Kind: OutOfStock}
)

// Error is the structured error used across the service layer.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid builds a Validation error carrying field messages.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "Validation failed", Fields: fields}
}

// KindOf returns the Kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Retryable reports whether the caller should reload state and retry.
// Only optimistic-concurrency conflicts qualify.
func Retryable(err error) bool {
	return KindOf(err) == StaleOrderVersion
}

// HTTPStatus maps a kind to the status code the API responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidTransition, StaleOrderVersion, ShopClosed, ShopNotApproved, DuplicateReview, OutOfStock:
		return http.StatusConflict
	case EmptyCart, ProductNotInShop, Validation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

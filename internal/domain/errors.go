package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrIdentityRequired indicates neither an authenticated user nor a
	// session id was supplied for a cart-scoped operation.
	ErrIdentityRequired = errors.New("authentication or session id required")
	// ErrEmptyCart indicates a checkout was attempted with no cart items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidCustomItem indicates a custom item with a negative price or
	// non-positive quantity.
	ErrInvalidCustomItem = errors.New("price must be non-negative and quantity positive")
	// ErrInvalidRange indicates an availability query with a bad date range.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks access to the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyProcessed indicates a payment was requested for an order
	// that is past the created/failed states.
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrGatewayUnavailable indicates the payment gateway is not configured.
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	// ErrInvalidTransition indicates a disallowed order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CapacityError reports a checkout rejected by the per-day delivery cap.
type CapacityError struct {
	Day       time.Time
	Requested int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no capacity for %d item(s) on %s, %d slot(s) remaining",
		e.Requested, e.Day.Format("2006-01-02"), e.Remaining)
}

// GatewayError reports a failed call to the payment gateway. Callers must
// leave order state untouched when this is returned.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

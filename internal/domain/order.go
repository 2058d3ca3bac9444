package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states, persisted as a constrained
// string.
type OrderStatus string

const (
	StatusCreated       OrderStatus = "created"
	StatusPaying        OrderStatus = "paying"
	StatusPaid          OrderStatus = "paid"
	StatusFailed        OrderStatus = "failed"
	StatusInPreparation OrderStatus = "in_preparation"
	StatusReady         OrderStatus = "ready"
	StatusDelivered     OrderStatus = "delivered"
	StatusCancelled     OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusPaying, StatusPaid, StatusFailed,
		StatusInPreparation, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// transitions is the full lifecycle table used for explicit (admin) status
// changes. Cancellation from any non-terminal state is handled separately in
// CanTransition.
var transitions = map[OrderStatus][]OrderStatus{
	StatusCreated:       {StatusPaying},
	StatusPaying:        {StatusPaid, StatusFailed},
	StatusFailed:        {StatusPaying},
	StatusPaid:          {StatusInPreparation},
	StatusInPreparation: {StatusReady},
	StatusReady:         {StatusDelivered},
}

// CanTransition reports whether an explicit change from one status to
// another is allowed.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReconciliationSources returns the statuses an order may currently hold for
// a gateway-driven move to target to be applied. The sets are chosen so that
// reapplying a notification is a no-op match and a weaker late notification
// (for example "pending" after "approved") matches nothing and is dropped:
// paid is reachable from every payment-phase state including itself, failed
// never demotes paid, and paying never demotes paid or failed.
func ReconciliationSources(target OrderStatus) []OrderStatus {
	switch target {
	case StatusPaid:
		return []OrderStatus{StatusCreated, StatusPaying, StatusFailed, StatusPaid}
	case StatusFailed:
		return []OrderStatus{StatusCreated, StatusPaying, StatusFailed}
	case StatusPaying:
		return []OrderStatus{StatusCreated, StatusPaying}
	}
	return nil
}

// Order is immutable after checkout except for status, internal notes and
// the payment fields. Total is fixed at creation and never recomputed.
type Order struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	UserID      *int64 `json:"user_id,omitempty"`

	GuestEmail *string `json:"-"`
	GuestPhone *string `json:"-"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	DeliveryType     string     `json:"delivery_type"`
	DeliveryAddress  *string    `json:"delivery_address"`
	DeliveryCity     *string    `json:"delivery_city"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	DeliveryTimeSlot *string    `json:"delivery_time_slot"`

	Notes         *string `json:"notes"`
	InternalNotes *string `json:"-"`

	Status OrderStatus `json:"status"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`

	PaymentMethod *string `json:"payment_method"`
	PaymentID     *string `json:"payment_id,omitempty"`
	PaymentStatus *string `json:"payment_status"`
	PreferenceID  *string `json:"-"`

	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderItem is a point-in-time snapshot of a cart item. Name, price and
// image are frozen at checkout so later catalog edits never alter history.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"-"`
	ProductID    *int64          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	ProductImage *string         `json:"product_image"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Notes        *string         `json:"notes"`
}

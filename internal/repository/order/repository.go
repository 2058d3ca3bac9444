package order

import (
	"context"
	"time"

	"tortaskeia-api/internal/domain"

	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	ProductID *int64
	Name      string
	Price     decimal.Decimal
	Image     *string
	Quantity  int
	Subtotal  decimal.Decimal
	Notes     *string
}

type CreateOrderInput struct {
	OrderNumber string
	UserID      *int64
	GuestEmail  *string
	GuestPhone  *string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	DeliveryType     string
	DeliveryAddress  *string
	DeliveryCity     *string
	DeliveryDate     *time.Time
	DeliveryTimeSlot *string
	Notes            *string

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal

	Items []OrderItemInput

	// CartID is the cart whose lines are deleted in the same transaction
	// that creates the order.
	CartID int64
	// Capacity is the per-day delivery cap, enforced when DeliveryDate is
	// set.
	Capacity int
}

type Repository interface {
	// CreateFromCart atomically re-checks day capacity, inserts the order
	// with its item snapshots and empties the source cart. Competing
	// checkouts for the same delivery day are serialized. Returns
	// *domain.CapacityError when the day is full and domain.ErrAlreadyExists
	// on an order-number collision.
	CreateFromCart(ctx context.Context, in CreateOrderInput) (*domain.Order, error)

	// ReservedByDay sums item quantities of non-cancelled orders per
	// delivery day within [from, to]. Days with no reservations are absent.
	ReservedByDay(ctx context.Context, from, to time.Time) (map[string]int, error)

	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)

	// MarkPaying records the gateway preference and moves the order to
	// paying, guarded so only created/failed orders are touched. Reports
	// whether the update applied.
	MarkPaying(ctx context.Context, id int64, preferenceID, method string) (bool, error)

	// ApplyPaymentResult moves the order to target and records the payment
	// id and raw gateway status, guarded by the reconciliation transition
	// table so late or duplicate notifications never demote a stronger
	// status. Reports whether the update applied.
	ApplyPaymentResult(ctx context.Context, orderNumber string, target domain.OrderStatus, paymentID, paymentStatus string) (bool, error)

	// UpdateStatus performs an explicit transition, compare-and-set on the
	// expected current status. Returns domain.ErrInvalidTransition if the
	// order is no longer in from.
	UpdateStatus(ctx context.Context, number string, from, to domain.OrderStatus) error

	UpdateInternalNotes(ctx context.Context, number string, notes string) error
}

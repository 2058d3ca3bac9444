package order

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"tortaskeia-api/internal/domain"
	orderrepo "tortaskeia-api/internal/repository/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxAvailabilityDays bounds availability queries to one year.
const maxAvailabilityDays = 365

type orderRepo interface {
	CreateFromCart(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error)
	ReservedByDay(ctx context.Context, from, to time.Time) (map[string]int, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, number string, from, to domain.OrderStatus) error
	UpdateInternalNotes(ctx context.Context, number string, notes string) error
}

type cartRepo interface {
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	GetOrCreateBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// FeePolicy computes the delivery fee for an order. The default charges
// nothing; a distance- or city-based policy can be swapped in without
// touching checkout.
type FeePolicy interface {
	Fee(deliveryType string, city *string) decimal.Decimal
}

// ZeroFee charges no delivery fee.
type ZeroFee struct{}

func (ZeroFee) Fee(string, *string) decimal.Decimal { return decimal.Zero }

type Service struct {
	orders   orderRepo
	carts    cartRepo
	fees     FeePolicy
	capacity int
	logger   *log.Logger
}

func New(orders orderrepo.Repository, carts cartRepo, fees FeePolicy, capacity int, logger *log.Logger) *Service {
	if fees == nil {
		fees = ZeroFee{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{orders: orders, carts: carts, fees: fees, capacity: capacity, logger: logger}
}

// DayAvailability is the per-day reservation count against the fixed cap.
type DayAvailability struct {
	Reserved int `json:"reserved"`
	Capacity int `json:"capacity"`
}

// Availability returns one entry per day in [from, to], zero-filled for
// days without reservations.
func (s *Service) Availability(ctx context.Context, from, to time.Time) (map[string]DayAvailability, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: from must not be after to", domain.ErrInvalidRange)
	}
	if int(to.Sub(from).Hours()/24) > maxAvailabilityDays {
		return nil, fmt.Errorf("%w: range must not exceed %d days", domain.ErrInvalidRange, maxAvailabilityDays)
	}

	reserved, err := s.orders.ReservedByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	days := make(map[string]DayAvailability)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		days[key] = DayAvailability{Reserved: reserved[key], Capacity: s.capacity}
	}
	return days, nil
}

type CheckoutInput struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	DeliveryType     string     `json:"delivery_type"`
	DeliveryAddress  *string    `json:"delivery_address"`
	DeliveryCity     *string    `json:"delivery_city"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	DeliveryTimeSlot *string    `json:"delivery_time_slot"`

	Notes *string `json:"notes"`
}

// Checkout converts the identity's cart into an order: snapshots every
// line, computes totals from live prices, assigns a fresh order number and
// empties the cart, all in one transaction in the repository.
func (s *Service) Checkout(ctx context.Context, identity domain.Identity, in CheckoutInput) (*domain.Order, error) {
	cart, err := s.resolveCart(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items := make([]orderrepo.OrderItemInput, 0, len(cart.Items))
	subtotal := decimal.Zero
	for _, ci := range cart.Items {
		item := orderrepo.OrderItemInput{
			ProductID: ci.ProductID,
			Name:      ci.DisplayName(),
			Price:     ci.UnitPrice(),
			Image:     ci.Image(),
			Quantity:  ci.Quantity,
			Subtotal:  ci.Subtotal(),
			Notes:     ci.Notes,
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.Subtotal)
	}

	fee := s.fees.Fee(in.DeliveryType, in.DeliveryCity)
	discount := decimal.Zero
	total := subtotal.Add(fee).Sub(discount)

	var userID *int64
	var guestEmail, guestPhone *string
	if identity.User != nil {
		userID = &identity.User.ID
	} else {
		guestEmail = &in.CustomerEmail
		guestPhone = &in.CustomerPhone
	}

	input := orderrepo.CreateOrderInput{
		UserID:           userID,
		GuestEmail:       guestEmail,
		GuestPhone:       guestPhone,
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		CustomerPhone:    in.CustomerPhone,
		DeliveryType:     in.DeliveryType,
		DeliveryAddress:  in.DeliveryAddress,
		DeliveryCity:     in.DeliveryCity,
		DeliveryDate:     in.DeliveryDate,
		DeliveryTimeSlot: in.DeliveryTimeSlot,
		Notes:            in.Notes,
		Subtotal:         subtotal,
		DeliveryFee:      fee,
		Discount:         discount,
		Total:            total,
		Items:            items,
		CartID:           cart.ID,
		Capacity:         s.capacity,
	}

	// The token has 32 bits of entropy; a collision is vanishingly rare but
	// the unique constraint catches it, so retry with a fresh number.
	for attempt := 0; attempt < 3; attempt++ {
		input.OrderNumber = newOrderNumber()
		order, err := s.orders.CreateFromCart(ctx, input)
		if err == nil {
			return order, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("order number collision persisted after retries")
}

// ListByUser returns the authenticated user's orders.
func (s *Service) ListByUser(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.orders.ListByUser(ctx, user.ID)
}

// GetByNumber fetches an order. Owners and admins always have access;
// anonymous callers are allowed through because the order number itself is
// an unguessable capability token used for guest tracking.
func (s *Service) GetByNumber(ctx context.Context, number string, user *domain.User) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if user != nil && !user.IsAdmin {
		if order.UserID == nil || *order.UserID != user.ID {
			return nil, domain.ErrForbidden
		}
	}
	return order, nil
}

// AdminList returns every order, newest first.
func (s *Service) AdminList(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// AdminUpdate applies an explicit per-field patch to the mutable admin
// surface of an order: status (validated against the transition table) and
// internal notes.
type AdminUpdate struct {
	Status        *domain.OrderStatus `json:"status"`
	InternalNotes *string             `json:"internal_notes"`
}

func (s *Service) AdminUpdate(ctx context.Context, number string, in AdminUpdate) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && *in.Status != order.Status {
		if !domain.CanTransition(order.Status, *in.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, *in.Status)
		}
		if err := s.orders.UpdateStatus(ctx, number, order.Status, *in.Status); err != nil {
			return nil, err
		}
		s.logger.Printf("order %s: admin status %s -> %s", number, order.Status, *in.Status)
	}
	if in.InternalNotes != nil {
		if err := s.orders.UpdateInternalNotes(ctx, number, *in.InternalNotes); err != nil {
			return nil, err
		}
	}
	return s.orders.GetByNumber(ctx, number)
}

func (s *Service) resolveCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	if identity.Empty() {
		return nil, domain.ErrIdentityRequired
	}
	if identity.User != nil {
		return s.carts.GetOrCreateByUser(ctx, identity.User.ID)
	}
	return s.carts.GetOrCreateBySession(ctx, identity.SessionID)
}

func newOrderNumber() string {
	u := uuid.New()
	return "TK-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

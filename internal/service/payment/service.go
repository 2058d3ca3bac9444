// Package payment creates gateway payment requests for orders and
// reconciles asynchronous gateway notifications back onto order state.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"tortaskeia-api/internal/domain"
	"tortaskeia-api/internal/gateway/mercadopago"
)

type orderRepo interface {
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	MarkPaying(ctx context.Context, id int64, preferenceID, method string) (bool, error)
	ApplyPaymentResult(ctx context.Context, orderNumber string, target domain.OrderStatus, paymentID, paymentStatus string) (bool, error)
}

// Gateway is the slice of the Mercado Pago API this service consumes.
type Gateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*mercadopago.MerchantOrder, error)
}

type Config struct {
	WebhookSecret       string
	Currency            string
	SuccessURL          string
	FailureURL          string
	PendingURL          string
	NotificationURL     string
	StatementDescriptor string
}

type Service struct {
	orders  orderRepo
	gateway Gateway // nil when no access token is configured
	cfg     Config
	logger  *log.Logger
}

func New(orders orderRepo, gateway Gateway, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.StatementDescriptor == "" {
		cfg.StatementDescriptor = "TORTASKEIA"
	}
	return &Service{orders: orders, gateway: gateway, cfg: cfg, logger: logger}
}

type PreferenceResult struct {
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// CreatePreference requests a gateway checkout for the order and moves it
// to paying. Only created and failed orders qualify; a gateway failure
// leaves the order untouched.
func (s *Service) CreatePreference(ctx context.Context, orderNumber string) (*PreferenceResult, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusCreated && order.Status != domain.StatusFailed {
		return nil, domain.ErrAlreadyProcessed
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayUnavailable
	}

	items := make([]mercadopago.PreferenceItem, 0, len(order.Items)+1)
	for _, item := range order.Items {
		items = append(items, mercadopago.PreferenceItem{
			Title:      item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.ProductPrice.InexactFloat64(),
			CurrencyID: s.cfg.Currency,
		})
	}
	if order.DeliveryFee.IsPositive() {
		items = append(items, mercadopago.PreferenceItem{
			Title:      "Envío",
			Quantity:   1,
			UnitPrice:  order.DeliveryFee.InexactFloat64(),
			CurrencyID: s.cfg.Currency,
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.PreferencePayer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
			Phone: mercadopago.PreferencePhone{Number: order.CustomerPhone},
		},
		BackURLs: mercadopago.BackURLs{
			Success: s.cfg.SuccessURL + "?order=" + order.OrderNumber,
			Failure: s.cfg.FailureURL + "?order=" + order.OrderNumber,
			Pending: s.cfg.PendingURL + "?order=" + order.OrderNumber,
		},
		AutoReturn:          "approved",
		ExternalReference:   order.OrderNumber,
		NotificationURL:     s.cfg.NotificationURL,
		StatementDescriptor: s.cfg.StatementDescriptor,
	})
	if err != nil {
		return nil, err
	}

	applied, err := s.orders.MarkPaying(ctx, order.ID, pref.ID, "mercadopago")
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another request moved the order first; the preference is unused.
		return nil, domain.ErrAlreadyProcessed
	}

	s.logger.Printf("payment: preference %s created for order %s", pref.ID, order.OrderNumber)
	return &PreferenceResult{PreferenceID: pref.ID, InitPoint: pref.RedirectURL()}, nil
}

type StatusResult struct {
	OrderNumber   string             `json:"order_number"`
	Status        domain.OrderStatus `json:"status"`
	PaymentStatus *string            `json:"payment_status"`
	PaymentMethod *string            `json:"payment_method"`
}

func (s *Service) Status(ctx context.Context, orderNumber string) (*StatusResult, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
	}, nil
}

// Notification is an inbound gateway event.
type Notification struct {
	Topic      string
	ResourceID string
	Signature  string
	RequestID  string
}

// HandleNotification applies a gateway notification to order state. Every
// failure path returns an error for the caller to log; the HTTP handler
// acknowledges regardless so the gateway never retries indefinitely.
func (s *Service) HandleNotification(ctx context.Context, n Notification) error {
	if n.Signature != "" && n.RequestID != "" && n.ResourceID != "" {
		if !s.VerifySignature(n.Signature, n.RequestID, n.ResourceID) {
			return fmt.Errorf("invalid webhook signature for resource %s", n.ResourceID)
		}
	}
	if n.ResourceID == "" {
		return nil
	}
	switch n.Topic {
	case "payment":
		return s.processPayment(ctx, n.ResourceID)
	case "merchant_order":
		return s.processMerchantOrder(ctx, n.ResourceID)
	}
	return nil
}

// VerifySignature recomputes the HMAC over the gateway's canonical manifest
// and compares in constant time. With no secret configured, verification is
// skipped.
func (s *Service) VerifySignature(signature, requestID, dataID string) bool {
	if s.cfg.WebhookSecret == "" {
		return true
	}
	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}

func (s *Service) processPayment(ctx context.Context, paymentID string) error {
	if s.gateway == nil {
		return domain.ErrGatewayUnavailable
	}
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	if payment.ExternalReference == "" {
		s.logger.Printf("payment: notification %s carries no external reference, dropped", paymentID)
		return nil
	}

	if _, err := s.orders.GetByNumber(ctx, payment.ExternalReference); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("payment: no order matches reference %q, dropped", payment.ExternalReference)
			return nil
		}
		return err
	}

	target, ok := mapGatewayStatus(payment.Status)
	if !ok {
		s.logger.Printf("payment: unknown gateway status %q for payment %s, dropped", payment.Status, paymentID)
		return nil
	}

	applied, err := s.orders.ApplyPaymentResult(ctx, payment.ExternalReference, target, payment.PaymentID(), payment.Status)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Printf("payment: order %s already past %s (gateway status %q), stale notification ignored",
			payment.ExternalReference, target, payment.Status)
		return nil
	}
	s.logger.Printf("payment: order %s -> %s (payment %s, gateway status %q)",
		payment.ExternalReference, target, payment.PaymentID(), payment.Status)
	return nil
}

// processMerchantOrder fans out to the payment path for each payment the
// gateway's order-level record contains.
func (s *Service) processMerchantOrder(ctx context.Context, merchantOrderID string) error {
	if s.gateway == nil {
		return domain.ErrGatewayUnavailable
	}
	mo, err := s.gateway.GetMerchantOrder(ctx, merchantOrderID)
	if err != nil {
		return fmt.Errorf("fetch merchant order %s: %w", merchantOrderID, err)
	}
	var firstErr error
	for _, p := range mo.Payments {
		if err := s.processPayment(ctx, strconv.FormatInt(p.ID, 10)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mapGatewayStatus translates a gateway payment status into the order
// status it implies.
func mapGatewayStatus(status string) (domain.OrderStatus, bool) {
	switch status {
	case "approved":
		return domain.StatusPaid, true
	case "rejected", "cancelled", "refunded", "charged_back":
		return domain.StatusFailed, true
	case "pending", "in_process", "authorized":
		return domain.StatusPaying, true
	}
	return "", false
}

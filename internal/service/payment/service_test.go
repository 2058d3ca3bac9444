package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"tortaskeia-api/internal/domain"
	"tortaskeia-api/internal/gateway/mercadopago"

	"github.com/shopspring/decimal"
)

type stubOrderRepo struct {
	order           *domain.Order
	getErr          error
	markPayingOK    bool
	markPayingCalls int
	applyCalls      int
}

func (s *stubOrderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.order == nil || s.order.OrderNumber != number {
		return nil, domain.ErrNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) MarkPaying(_ context.Context, id int64, preferenceID, method string) (bool, error) {
	s.markPayingCalls++
	if !s.markPayingOK {
		return false, nil
	}
	s.order.Status = domain.StatusPaying
	s.order.PreferenceID = &preferenceID
	s.order.PaymentMethod = &method
	return true, nil
}

// ApplyPaymentResult mirrors the SQL guard: the target applies only when
// the current status is one of its reconciliation sources.
func (s *stubOrderRepo) ApplyPaymentResult(_ context.Context, number string, target domain.OrderStatus, paymentID, paymentStatus string) (bool, error) {
	s.applyCalls++
	if s.order == nil || s.order.OrderNumber != number {
		return false, nil
	}
	for _, src := range domain.ReconciliationSources(target) {
		if s.order.Status == src {
			s.order.Status = target
			s.order.PaymentID = &paymentID
			s.order.PaymentStatus = &paymentStatus
			return true, nil
		}
	}
	return false, nil
}

type stubGateway struct {
	payments      map[string]*mercadopago.Payment
	paymentErr    error
	merchantOrder *mercadopago.MerchantOrder
	pref          *mercadopago.Preference
	prefErr       error
	prefRequests  []mercadopago.PreferenceRequest
	paymentCalls  []string
}

func (g *stubGateway) CreatePreference(_ context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	g.prefRequests = append(g.prefRequests, req)
	return g.pref, g.prefErr
}

func (g *stubGateway) GetPayment(_ context.Context, id string) (*mercadopago.Payment, error) {
	g.paymentCalls = append(g.paymentCalls, id)
	if g.paymentErr != nil {
		return nil, g.paymentErr
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, &domain.GatewayError{Op: "get payment", StatusCode: 404, Message: "not found"}
	}
	return p, nil
}

func (g *stubGateway) GetMerchantOrder(_ context.Context, id string) (*mercadopago.MerchantOrder, error) {
	return g.merchantOrder, nil
}

func testOrder(status domain.OrderStatus) *domain.Order {
	price := decimal.RequireFromString("1200.00")
	return &domain.Order{
		ID:            1,
		OrderNumber:   "TK-AB12CD34",
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		CustomerPhone: "099123456",
		Status:        status,
		Subtotal:      price.Mul(decimal.NewFromInt(2)),
		DeliveryFee:   decimal.Zero,
		Discount:      decimal.Zero,
		Total:         price.Mul(decimal.NewFromInt(2)),
		Items: []domain.OrderItem{
			{ProductName: "Torta de chocolate", ProductPrice: price, Quantity: 2, Subtotal: price.Mul(decimal.NewFromInt(2))},
		},
	}
}

func newTestService(repo *stubOrderRepo, gw Gateway, secret string) *Service {
	return New(repo, gw, Config{
		WebhookSecret:   secret,
		Currency:        "UYU",
		SuccessURL:      "http://localhost:4000/checkout/success",
		FailureURL:      "http://localhost:4000/checkout/failure",
		PendingURL:      "http://localhost:4000/checkout/pending",
		NotificationURL: "http://localhost:8080/api/payments/webhook",
	}, nil)
}

func approvedNotification() Notification {
	return Notification{Topic: "payment", ResourceID: "777"}
}

func TestHandleNotificationApprovedIsIdempotent(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: "approved", ExternalReference: "TK-AB12CD34"},
	}}
	svc := newTestService(repo, gw, "")

	for i := 0; i < 2; i++ {
		if err := svc.HandleNotification(context.Background(), approvedNotification()); err != nil {
			t.Fatalf("HandleNotification #%d: %v", i+1, err)
		}
	}

	if repo.order.Status != domain.StatusPaid {
		t.Fatalf("expected status paid, got %s", repo.order.Status)
	}
	if repo.order.PaymentID == nil || *repo.order.PaymentID != "777" {
		t.Fatalf("expected payment id 777, got %v", repo.order.PaymentID)
	}
}

func TestLatePendingDoesNotRegressPaid(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: "approved", ExternalReference: "TK-AB12CD34"},
		"778": {ID: 778, Status: "pending", ExternalReference: "TK-AB12CD34"},
	}}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), approvedNotification()); err != nil {
		t.Fatalf("approved notification: %v", err)
	}
	if err := svc.HandleNotification(context.Background(), Notification{Topic: "payment", ResourceID: "778"}); err != nil {
		t.Fatalf("late pending notification: %v", err)
	}

	if repo.order.Status != domain.StatusPaid {
		t.Fatalf("late pending regressed status to %s", repo.order.Status)
	}
	if repo.order.PaymentID == nil || *repo.order.PaymentID != "777" {
		t.Fatalf("late pending overwrote payment id: %v", repo.order.PaymentID)
	}
}

func TestRejectedAfterApprovedDoesNotDemote(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaid)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"900": {ID: 900, Status: "rejected", ExternalReference: "TK-AB12CD34"},
	}}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), Notification{Topic: "payment", ResourceID: "900"}); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if repo.order.Status != domain.StatusPaid {
		t.Fatalf("rejected demoted a paid order to %s", repo.order.Status)
	}
}

func TestRetryAfterFailureCanSucceed(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusFailed)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: "approved", ExternalReference: "TK-AB12CD34"},
	}}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), approvedNotification()); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if repo.order.Status != domain.StatusPaid {
		t.Fatalf("expected paid after retry, got %s", repo.order.Status)
	}
}

func TestUnmatchedReferenceIsDropped(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: "approved", ExternalReference: "TK-UNKNOWN1"},
	}}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), approvedNotification()); err != nil {
		t.Fatalf("unmatched reference must not error: %v", err)
	}
	if repo.order.Status != domain.StatusPaying {
		t.Fatalf("unmatched reference mutated order to %s", repo.order.Status)
	}
	if repo.applyCalls != 0 {
		t.Fatalf("expected no apply attempt, got %d", repo.applyCalls)
	}
}

func TestUnknownTopicIgnored(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), Notification{Topic: "plan", ResourceID: "1"}); err != nil {
		t.Fatalf("unknown topic must not error: %v", err)
	}
	if len(gw.paymentCalls) != 0 {
		t.Fatalf("unexpected gateway calls %v", gw.paymentCalls)
	}
}

func TestMerchantOrderFansOut(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{
		payments: map[string]*mercadopago.Payment{
			"1": {ID: 1, Status: "pending", ExternalReference: "TK-AB12CD34"},
			"2": {ID: 2, Status: "approved", ExternalReference: "TK-AB12CD34"},
		},
		merchantOrder: &mercadopago.MerchantOrder{ID: 55, Payments: []mercadopago.MerchantOrderPayment{{ID: 1}, {ID: 2}}},
	}
	svc := newTestService(repo, gw, "")

	if err := svc.HandleNotification(context.Background(), Notification{Topic: "merchant_order", ResourceID: "55"}); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if len(gw.paymentCalls) != 2 {
		t.Fatalf("expected fan-out to 2 payments, got %v", gw.paymentCalls)
	}
	if repo.order.Status != domain.StatusPaid {
		t.Fatalf("expected paid after fan-out, got %s", repo.order.Status)
	}
}

func signatureFor(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	svc := newTestService(&stubOrderRepo{}, &stubGateway{}, "topsecret")

	sig := signatureFor("topsecret", "777", "req-1", "1700000000")
	if !svc.VerifySignature(sig, "req-1", "777") {
		t.Fatal("valid signature rejected")
	}
	if svc.VerifySignature(sig, "req-2", "777") {
		t.Fatal("signature accepted for a different request id")
	}
	if svc.VerifySignature("ts=1700000000,v1=deadbeef", "req-1", "777") {
		t.Fatal("forged signature accepted")
	}
	if svc.VerifySignature("garbage", "req-1", "777") {
		t.Fatal("malformed signature accepted")
	}
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	svc := newTestService(&stubOrderRepo{}, &stubGateway{}, "")
	if !svc.VerifySignature("garbage", "req-1", "777") {
		t.Fatal("verification must be skipped when no secret is configured")
	}
}

func TestInvalidSignatureBlocksProcessing(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusPaying)}
	gw := &stubGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: "approved", ExternalReference: "TK-AB12CD34"},
	}}
	svc := newTestService(repo, gw, "topsecret")

	err := svc.HandleNotification(context.Background(), Notification{
		Topic: "payment", ResourceID: "777", Signature: "ts=1,v1=bad", RequestID: "req-1",
	})
	if err == nil {
		t.Fatal("expected signature error")
	}
	if len(gw.paymentCalls) != 0 {
		t.Fatalf("gateway consulted despite bad signature: %v", gw.paymentCalls)
	}
	if repo.order.Status != domain.StatusPaying {
		t.Fatalf("order mutated despite bad signature: %s", repo.order.Status)
	}
}

func TestCreatePreference(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusCreated), markPayingOK: true}
	gw := &stubGateway{pref: &mercadopago.Preference{ID: "pref-9", InitPoint: "https://mp/init"}}
	svc := newTestService(repo, gw, "")

	res, err := svc.CreatePreference(context.Background(), "TK-AB12CD34")
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if res.PreferenceID != "pref-9" || res.InitPoint != "https://mp/init" {
		t.Fatalf("unexpected result %+v", res)
	}
	if repo.order.Status != domain.StatusPaying {
		t.Fatalf("expected paying, got %s", repo.order.Status)
	}

	req := gw.prefRequests[0]
	if req.ExternalReference != "TK-AB12CD34" {
		t.Errorf("unexpected external reference %q", req.ExternalReference)
	}
	if len(req.Items) != 1 || req.Items[0].UnitPrice != 1200 || req.Items[0].Quantity != 2 {
		t.Errorf("unexpected items %+v", req.Items)
	}
	if req.BackURLs.Success != "http://localhost:4000/checkout/success?order=TK-AB12CD34" {
		t.Errorf("unexpected success url %q", req.BackURLs.Success)
	}
}

func TestCreatePreferenceAddsDeliveryFeeLine(t *testing.T) {
	order := testOrder(domain.StatusCreated)
	order.DeliveryFee = decimal.RequireFromString("150.00")
	repo := &stubOrderRepo{order: order, markPayingOK: true}
	gw := &stubGateway{pref: &mercadopago.Preference{ID: "pref-9", InitPoint: "https://mp/init"}}
	svc := newTestService(repo, gw, "")

	if _, err := svc.CreatePreference(context.Background(), "TK-AB12CD34"); err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	req := gw.prefRequests[0]
	if len(req.Items) != 2 || req.Items[1].Title != "Envío" || req.Items[1].UnitPrice != 150 {
		t.Fatalf("expected delivery fee line, got %+v", req.Items)
	}
}

func TestCreatePreferenceAlreadyProcessed(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.StatusPaying, domain.StatusPaid, domain.StatusDelivered} {
		repo := &stubOrderRepo{order: testOrder(status)}
		svc := newTestService(repo, &stubGateway{}, "")
		_, err := svc.CreatePreference(context.Background(), "TK-AB12CD34")
		if !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("status %s: expected ErrAlreadyProcessed, got %v", status, err)
		}
	}
}

func TestCreatePreferenceRetryableFromFailed(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusFailed), markPayingOK: true}
	gw := &stubGateway{pref: &mercadopago.Preference{ID: "pref-2", InitPoint: "https://mp/init"}}
	svc := newTestService(repo, gw, "")

	if _, err := svc.CreatePreference(context.Background(), "TK-AB12CD34"); err != nil {
		t.Fatalf("CreatePreference after failure: %v", err)
	}
	if repo.order.Status != domain.StatusPaying {
		t.Fatalf("expected paying, got %s", repo.order.Status)
	}
}

func TestCreatePreferenceGatewayUnavailable(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusCreated)}
	svc := New(repo, nil, Config{Currency: "UYU"}, nil)
	_, err := svc.CreatePreference(context.Background(), "TK-AB12CD34")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreatePreferenceGatewayErrorLeavesOrderUntouched(t *testing.T) {
	repo := &stubOrderRepo{order: testOrder(domain.StatusCreated), markPayingOK: true}
	gw := &stubGateway{prefErr: &domain.GatewayError{Op: "create preference", StatusCode: 500, Message: "boom"}}
	svc := newTestService(repo, gw, "")

	_, err := svc.CreatePreference(context.Background(), "TK-AB12CD34")
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if repo.order.Status != domain.StatusCreated {
		t.Fatalf("order mutated after gateway error: %s", repo.order.Status)
	}
	if repo.markPayingCalls != 0 {
		t.Fatalf("MarkPaying called despite gateway error")
	}
}

func TestStatus(t *testing.T) {
	order := testOrder(domain.StatusPaid)
	method := "mercadopago"
	raw := "approved"
	order.PaymentMethod = &method
	order.PaymentStatus = &raw
	repo := &stubOrderRepo{order: order}
	svc := newTestService(repo, &stubGateway{}, "")

	res, err := svc.Status(context.Background(), "TK-AB12CD34")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if res.Status != domain.StatusPaid || *res.PaymentStatus != "approved" {
		t.Fatalf("unexpected status %+v", res)
	}
}

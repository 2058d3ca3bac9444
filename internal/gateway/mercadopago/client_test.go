package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tortaskeia-api/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-token", 5*time.Second, nil)
	c.SetBaseURL(srv.URL)
	return c
}

func TestCreatePreference(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req PreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ExternalReference != "TK-ABC12345" {
			t.Errorf("unexpected external_reference %q", req.ExternalReference)
		}
		json.NewEncoder(w).Encode(Preference{ID: "pref-1", InitPoint: "https://mp/init", SandboxInitPoint: "https://mp/sandbox"})
	})

	pref, err := c.CreatePreference(context.Background(), PreferenceRequest{
		Items:             []PreferenceItem{{Title: "Torta", Quantity: 1, UnitPrice: 1200, CurrencyID: "UYU"}},
		ExternalReference: "TK-ABC12345",
	})
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.ID != "pref-1" {
		t.Fatalf("unexpected preference %+v", pref)
	}
	if pref.RedirectURL() != "https://mp/sandbox" {
		t.Fatalf("expected sandbox redirect, got %s", pref.RedirectURL())
	}
}

func TestCreatePreferenceEmptyID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Preference{})
	})
	_, err := c.CreatePreference(context.Background(), PreferenceRequest{})
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestGetPayment(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Payment{ID: 123, Status: "approved", ExternalReference: "TK-ABC12345"})
	})

	payment, err := c.GetPayment(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.PaymentID() != "123" || payment.Status != "approved" {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestGetMerchantOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant_orders/55" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(MerchantOrder{ID: 55, Payments: []MerchantOrderPayment{{ID: 1}, {ID: 2}}})
	})

	mo, err := c.GetMerchantOrder(context.Background(), "55")
	if err != nil {
		t.Fatalf("GetMerchantOrder: %v", err)
	}
	if len(mo.Payments) != 2 {
		t.Fatalf("unexpected merchant order %+v", mo)
	}
}

func TestGatewayErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	})
	_, err := c.GetPayment(context.Background(), "999")
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", gwErr.StatusCode)
	}
}

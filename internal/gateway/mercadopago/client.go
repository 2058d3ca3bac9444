// Package mercadopago is a minimal REST client for the three Mercado Pago
// endpoints this service consumes: checkout preferences, payments and
// merchant orders.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"tortaskeia-api/internal/domain"
)

const defaultBaseURL = "https://api.mercadopago.com"

type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      *log.Logger
}

// New builds a client with a bounded timeout on every gateway call.
func New(accessToken string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// SetBaseURL overrides the API host, used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferencePayer struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Phone PreferencePhone `json:"phone"`
}

type PreferencePhone struct {
	Number string `json:"number"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               PreferencePayer  `json:"payer"`
	BackURLs            BackURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return"`
	ExternalReference   string           `json:"external_reference"`
	NotificationURL     string           `json:"notification_url"`
	StatementDescriptor string           `json:"statement_descriptor"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// RedirectURL prefers the sandbox checkout when the credential is a test one.
func (p Preference) RedirectURL() string {
	if p.SandboxInitPoint != "" {
		return p.SandboxInitPoint
	}
	return p.InitPoint
}

type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail"`
	ExternalReference string `json:"external_reference"`
}

// PaymentID is the payment identifier as recorded on orders.
func (p Payment) PaymentID() string { return strconv.FormatInt(p.ID, 10) }

type MerchantOrder struct {
	ID       int64                  `json:"id"`
	Payments []MerchantOrderPayment `json:"payments"`
}

type MerchantOrderPayment struct {
	ID int64 `json:"id"`
}

func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	if pref.ID == "" {
		return nil, &domain.GatewayError{Op: "create preference", StatusCode: http.StatusOK, Message: "empty preference id"}
	}
	return &pref, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	var mo MerchantOrder
	if err := c.do(ctx, http.MethodGet, "/merchant_orders/"+id, nil, &mo); err != nil {
		return nil, err
	}
	return &mo, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &domain.GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("mercadopago: %s error=%v", op, err)
		return &domain.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.GatewayError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Printf("mercadopago: %s status=%d body=%s", op, resp.StatusCode, truncate(raw, 512))
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: string(truncate(raw, 512))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Package payment talks to the hosted checkout gateway and verifies the
// signatures it attaches to payments and webhooks.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"produce-market/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentUnavailable    = errors.New("online payment is not configured")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrGatewayRequestFailed  = errors.New("payment gateway request failed")
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)

const createOrderPath = "/v1/orders"

// Webhook event names
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// Gateway is what checkout needs from the payment provider
type Gateway interface {
	Enabled() bool
	KeyID() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	httpClient    *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether API credentials are configured.
func (c *Client) Enabled() bool {
	return c.keyID != "" && c.keySecret != ""
}

// KeyID is the public key the storefront checkout widget is opened with.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) Currency() string {
	return c.currency
}

// CreateOrder registers an amount (in minor units) with the gateway and
// returns the gateway's order id for the checkout widget.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	if !c.Enabled() {
		return nil, ErrPaymentUnavailable
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %d", req.Amount)
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway order: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, createOrderPath, body)
	if err != nil {
		return nil, err
	}

	var order GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response carried no order id", ErrGatewayRequestFailed)
	}
	return &order, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errResp gatewayError
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", ErrGatewayRequestFailed, errResp.Error.Code, errResp.Error.Description)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// VerifyPaymentSignature checks the checkout callback signature, which is
// HMAC-SHA256 of "<gateway order id>|<payment id>" keyed by the API secret.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	if c.keySecret == "" || gatewayOrderID == "" || paymentID == "" {
		return false
	}
	return verify(c.keySecret, []byte(gatewayOrderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks the HMAC-SHA256 of the raw webhook body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" {
		return false
	}
	return verify(c.webhookSecret, body, signature)
}

// Sign returns the lowercase hex HMAC-SHA256 of message.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret string, message []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hmac.Equal(got, mac.Sum(nil))
}

// ToMinorUnits converts an amount in rupees to paise, rounding half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

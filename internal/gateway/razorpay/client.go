// Package razorpay implements the payment.Gateway boundary against the
// Razorpay Orders API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/extremewear/checkout-api/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client talks to the Razorpay REST API using key-ID/secret basic auth.
type Client struct {
	http    *http.Client
	baseURL string
	keyID   string
	secret  string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests and sandbox setups.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Razorpay client authenticated with the given key pair.
func NewClient(keyID, secret string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		keyID:   keyID,
		secret:  secret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentCapture int    `json:"payment_capture"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers a payment order with the gateway for the given
// integer minor-unit amount and returns the gateway's order reference.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string) (*payment.GatewayOrder, error) {
	ctx, span := otel.Tracer("checkout.gateway.razorpay").Start(ctx, "CreateOrder",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("gateway.amount", amount),
			attribute.String("gateway.currency", currency),
		),
	)
	defer span.End()

	body, err := json.Marshal(createOrderRequest{
		Amount:         amount,
		Currency:       currency,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Description != "" {
			return nil, errors.Errorf("gateway rejected order: %s (%s)",
				apiErr.Error.Description, apiErr.Error.Code)
		}
		return nil, errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	if out.ID == "" {
		return nil, errors.New("gateway response missing order id")
	}

	return &payment.GatewayOrder{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
	}, nil
}

// String implements fmt.Stringer without exposing the secret.
func (c *Client) String() string {
	return fmt.Sprintf("razorpay.Client{key_id: %s}", c.keyID)
}

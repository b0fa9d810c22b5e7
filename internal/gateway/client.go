package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mythmanga/internal/config"
	"mythmanga/internal/logger"
	"mythmanga/internal/models"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when a required key or endpoint is missing.
	ErrNotConfigured = errors.New("gateway: not configured")
	// ErrUnavailable is returned when a procedure could not produce an answer.
	ErrUnavailable = errors.New("gateway: unavailable")
)

// IdempotencyKeyHeader carries the checkout attempt id on order creation.
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateOrderRequest is the body of the order-creation procedure.
type CreateOrderRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// VerifyRequest is the body of the signature-verification procedure.
type VerifyRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyResponse is the answer of the signature-verification procedure.
type VerifyResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Client calls the order-creation and verification procedures.
type Client struct {
	http           *http.Client
	keyID          string
	orderEndpoint  string
	verifyEndpoint string
	apiKey         string
	maxRetries     int
	initialBackoff time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) { c.initialBackoff = d }
}

// NewClient builds a Client from the gateway settings. httpClient should carry the call timeout.
func NewClient(cfg config.GatewayConfig, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		http:           httpClient,
		keyID:          cfg.KeyID,
		orderEndpoint:  cfg.OrderEndpoint,
		verifyEndpoint: cfg.VerifyEndpoint,
		apiKey:         cfg.FunctionsKey,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckOrderConfig reports ErrNotConfigured unless a key id and order endpoint are set.
func (c *Client) CheckOrderConfig() error {
	if c.keyID == "" {
		return fmt.Errorf("%w: missing key id", ErrNotConfigured)
	}
	if c.orderEndpoint == "" {
		return fmt.Errorf("%w: missing order endpoint", ErrNotConfigured)
	}
	return nil
}

// CreateOrder asks the order-creation procedure for a gateway order.
// The same idempotency key is sent on every retry.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*models.GatewayOrder, error) {
	if err := c.CheckOrderConfig(); err != nil {
		return nil, err
	}

	headers := map[string]string{IdempotencyKeyHeader: idempotencyKey}
	var order models.GatewayOrder
	status, err := c.postJSON(ctx, c.orderEndpoint, req, headers, &order)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: order creation returned status %d", ErrUnavailable, status)
	}
	return &order, nil
}

// Verify asks the verification procedure whether the payment signature is genuine.
// Any answer carrying a verdict is returned as-is, whatever its status code.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	if c.verifyEndpoint == "" {
		return nil, fmt.Errorf("%w: missing verify endpoint", ErrNotConfigured)
	}

	var raw map[string]json.RawMessage
	status, err := c.postJSON(ctx, c.verifyEndpoint, req, nil, &raw)
	if err != nil {
		return nil, err
	}

	verdict, ok := raw["verified"]
	if !ok {
		return nil, fmt.Errorf("%w: verification returned status %d without a verdict", ErrUnavailable, status)
	}
	var resp VerifyResponse
	if err := json.Unmarshal(verdict, &resp.Verified); err != nil {
		return nil, fmt.Errorf("%w: malformed verdict: %v", ErrUnavailable, err)
	}
	if msg, ok := raw["message"]; ok {
		_ = json.Unmarshal(msg, &resp.Message)
	}
	return &resp, nil
}

// postJSON sends body and decodes the reply into out. Transport errors and 5xx
// responses are retried; 4xx responses are returned for the caller to judge.
func (c *Client) postJSON(ctx context.Context, url string, body any, headers map[string]string, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	var status int
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if status >= 500 {
			return fmt.Errorf("%w: status %d", ErrUnavailable, status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil && status < 300 {
				return backoff.Permanent(fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err))
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	retrier := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		logger.Get().Warn("Retrying gateway call",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, retrier, notify); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return status, err
	}
	return status, nil
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mythmanga/internal/config"
	"mythmanga/internal/models"
)

// Upstream talks to the gateway's own Orders API with the merchant key pair.
type Upstream struct {
	http      *http.Client
	apiURL    string
	keyID     string
	keySecret string
}

// NewUpstream creates an Upstream from the gateway settings.
func NewUpstream(cfg config.GatewayConfig, httpClient *http.Client) *Upstream {
	return &Upstream{
		http:      httpClient,
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
	}
}

// Configured reports whether both halves of the key pair are present.
func (u *Upstream) Configured() bool {
	return u.keyID != "" && u.keySecret != ""
}

// Secret returns the key secret used to sign payments.
func (u *Upstream) Secret() string {
	return u.keySecret
}

type upstreamOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt,omitempty"`
	PaymentCapture int    `json:"payment_capture"`
}

// CreateOrder creates an auto-captured order. receipt is echoed back by the gateway.
func (u *Upstream) CreateOrder(ctx context.Context, req CreateOrderRequest, receipt string) (*models.GatewayOrder, error) {
	if !u.Configured() {
		return nil, fmt.Errorf("%w: missing key pair", ErrNotConfigured)
	}

	payload, err := json.Marshal(upstreamOrderRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(u.keyID, u.keySecret)

	resp, err := u.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: orders API returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var order models.GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: malformed order: %v", ErrUnavailable, err)
	}
	return &order, nil
}

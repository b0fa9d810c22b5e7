package notifications

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
	"mythmanga/internal/models"

	"github.com/shopspring/decimal"
)

// ErrEmailRejected is returned when the email function refuses the request (4xx).
var ErrEmailRejected = errors.New("notifications: email request rejected")

// EmailTypeOrderReceived is the template selector understood by the email function.
const EmailTypeOrderReceived = "order_received"

type emailItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type emailOrderData struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Items         []emailItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type emailRequest struct {
	To        string         `json:"to"`
	Type      string         `json:"type"`
	Subject   string         `json:"subject"`
	OrderData emailOrderData `json:"order_data"`
}

// EmailClient posts order emails to the email notification function.
type EmailClient struct {
	url        string
	key        string
	httpClient *http.Client
}

func NewEmailClient(cfg config.EmailConfig, httpClient *http.Client) *EmailClient {
	return &EmailClient{url: cfg.FunctionURL, key: cfg.FunctionKey, httpClient: httpClient}
}

// Configured reports whether an email function URL is set.
func (c *EmailClient) Configured() bool {
	return c != nil && c.url != ""
}

// SendOrderReceived asks the email function to send the order confirmation.
func (c *EmailClient) SendOrderReceived(ctx context.Context, order models.Order) error {
	data := emailOrderData{
		ID:            order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Items:         make([]emailItem, 0, len(order.Items)),
		TotalAmount:   order.TotalAmount,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, emailItem{Name: item.Name, Quantity: item.Quantity, Price: item.Price})
	}

	body, err := json.Marshal(emailRequest{
		To:        order.CustomerEmail,
		Type:      EmailTypeOrderReceived,
		Subject:   "Order Received - " + order.ID,
		OrderData: data,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send order email for %s: %w", order.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d for order %s", ErrEmailRejected, resp.StatusCode, order.ID)
	default:
		return fmt.Errorf("email function returned status %d for order %s", resp.StatusCode, order.ID)
	}
}

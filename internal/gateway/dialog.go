package gateway

import (
	"fmt"
	"strings"

	"mythmanga/internal/config"
	"mythmanga/internal/models"
)

// Prefill seeds the payment dialog's contact fields.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Notes travel with the payment to the gateway dashboard.
type Notes struct {
	Address string `json:"address"`
}

// Theme colours the dialog.
type Theme struct {
	Color string `json:"color"`
}

// DialogOptions is everything the browser needs to open the hosted payment dialog.
// The callback URLs stand in for the widget's handler and ondismiss hooks.
type DialogOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id,omitempty"`
	Prefill     Prefill `json:"prefill"`
	Notes       Notes   `json:"notes"`
	Theme       Theme   `json:"theme"`
	CallbackURL string  `json:"callback_url"`
	FailureURL  string  `json:"failure_url"`
	DismissURL  string  `json:"dismiss_url"`
}

// NewDialogOptions builds the dialog payload for an attempt awaiting its callback.
// basePath is the route prefix of the attempt, e.g. /api/v1/checkout.
func NewDialogOptions(cfg config.GatewayConfig, attempt *models.CheckoutAttempt, basePath string) DialogOptions {
	base := fmt.Sprintf("%s/%s", strings.TrimRight(basePath, "/"), attempt.ID)
	opts := DialogOptions{
		Key:         cfg.KeyID,
		Amount:      attempt.AmountMinor,
		Currency:    attempt.Currency,
		Name:        cfg.MerchantName,
		Description: cfg.Description,
		Prefill: Prefill{
			Name:    attempt.Form.Name,
			Email:   attempt.Form.Email,
			Contact: attempt.Form.Phone,
		},
		Notes: Notes{
			Address: fmt.Sprintf("%s, %s, %s - %s",
				attempt.Form.Street, attempt.Form.City, attempt.Form.State, attempt.Form.ZipCode),
		},
		Theme:       Theme{Color: cfg.ThemeColor},
		CallbackURL: base + "/payment",
		FailureURL:  base + "/failure",
		DismissURL:  base + "/dismiss",
	}
	if attempt.GatewayOrder != nil {
		opts.OrderID = attempt.GatewayOrder.ID
	}
	return opts
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is one of the mutually exclusive ways to pay at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD           PaymentMethod = "cash_on_delivery"
	PaymentMethodStoredCard    PaymentMethod = "stored_card_demo"
	PaymentMethodHostedGateway PaymentMethod = "hosted_gateway"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodStoredCard, PaymentMethodHostedGateway:
		return true
	}
	return false
}

// CheckoutState is a step of a single checkout attempt.
type CheckoutState string

const (
	StateIdle                    CheckoutState = "IDLE"
	StateMethodSelected          CheckoutState = "METHOD_SELECTED"
	StateSubmitting              CheckoutState = "SUBMITTING"
	StateCreatingRemoteOrder     CheckoutState = "CREATING_REMOTE_ORDER"
	StateAwaitingGatewayCallback CheckoutState = "AWAITING_GATEWAY_CALLBACK"
	StateVerifying               CheckoutState = "VERIFYING"
	StatePersisting              CheckoutState = "PERSISTING"
	StateDone                    CheckoutState = "DONE"
	StateFailed                  CheckoutState = "FAILED"
	StateCancelled               CheckoutState = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s CheckoutState) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// CheckoutForm is the shipping and contact data entered at checkout.
type CheckoutForm struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=7,max=20"`
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=120"`
	State   string `json:"state" validate:"required,max=120"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
}

// PriceBreakdown is the payable total and its parts, computed once per attempt.
type PriceBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// GatewayOrder is the hosted-checkout session handle. An empty ID means direct mode.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CheckoutAttempt tracks one submission through the checkout state machine.
type CheckoutAttempt struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"order_id"`
	ClientID      string         `json:"client_id"`
	UserID        string         `json:"user_id,omitempty"`
	Method        PaymentMethod  `json:"method"`
	State         CheckoutState  `json:"state"`
	Form          CheckoutForm   `json:"form"`
	Items         []OrderItem    `json:"items"`
	Pricing       PriceBreakdown `json:"pricing"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	AmountMinor   int64          `json:"amount_minor,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	GatewayOrder  *GatewayOrder  `json:"gateway_order,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

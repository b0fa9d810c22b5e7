package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses written by checkout. Later transitions belong to fulfillment.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
)

// Payment statuses written by checkout.
const (
	PaymentStatusPendingCOD = "pending_cod"
	PaymentStatusPaid       = "paid"
)

// OrderItem represents a single line within an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"` // Price at the time of order
	Quantity  int             `json:"quantity"`
}

// Order is the record of a purchase as stored in the orders table.
type Order struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(40)"`
	Items         []OrderItem     `json:"items" gorm:"serializer:json;type:text"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	Status        string          `json:"status" gorm:"type:varchar(32)"`
	PaymentStatus string          `json:"payment_status" gorm:"type:varchar(32)"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(32)"`
	// PaymentID is unique among paid orders; one gateway payment settles one order.
	PaymentID      string `json:"payment_id,omitempty" gorm:"type:varchar(64);uniqueIndex:idx_orders_payment_id,where:payment_id <> ''"`
	GatewayOrderID string `json:"gateway_order_id,omitempty" gorm:"type:varchar(64)"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerPhone  string `json:"customer_phone"`
	// UserID holds the owner only when the identity is a UUID; null for guests.
	UserID *string `json:"user_id" gorm:"type:uuid;index"`
	// UserIdentifier holds the owner identity in any shape.
	UserIdentifier *string   `json:"user_identifier,omitempty" gorm:"type:varchar(255);index"`
	ShippingName   string    `json:"shipping_name"`
	ShippingStreet string    `json:"shipping_street"`
	ShippingCity   string    `json:"shipping_city"`
	ShippingState  string    `json:"shipping_state"`
	ShippingZip    string    `json:"shipping_zip"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ShippingAddress is the display form of an order's shipping columns.
type ShippingAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Record store outcomes noted on local order entries.
const (
	RemoteStatusSaved  = "saved"
	RemoteStatusFailed = "failed"
)

// LocalOrder is the entry kept in a client's fallback order list.
type LocalOrder struct {
	Order
	Date            time.Time       `json:"date"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Total           decimal.Decimal `json:"total"`
	// RemoteStatus is the outcome of the record store insert made alongside
	// this entry; empty when unknown.
	RemoteStatus string `json:"remote_status,omitempty"`
}

// NewLocalOrder derives the fallback list entry for an order.
func NewLocalOrder(o Order) LocalOrder {
	return LocalOrder{
		Order: o,
		Date:  o.CreatedAt,
		ShippingAddress: ShippingAddress{
			Name:    o.ShippingName,
			Street:  o.ShippingStreet,
			City:    o.ShippingCity,
			State:   o.ShippingState,
			ZipCode: o.ShippingZip,
		},
		Total: o.TotalAmount,
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon kinds.
const (
	CouponKindPercent = "percent"
	CouponKindFlat    = "flat"
)

// Coupon is a discount code redeemable at checkout.
type Coupon struct {
	Code        string          `json:"code" gorm:"primaryKey;type:varchar(32)"`
	Kind        string          `json:"kind" gorm:"type:varchar(16)"`
	Value       decimal.Decimal `json:"value" gorm:"type:numeric(12,2)"`
	MinSubtotal decimal.Decimal `json:"min_subtotal" gorm:"type:numeric(12,2)"`
	// MaxDiscount caps percent coupons; zero means uncapped.
	MaxDiscount decimal.Decimal `json:"max_discount" gorm:"type:numeric(12,2)"`
	Active      bool            `json:"active"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteSettings is the single row of store-wide flags edited from the admin console.
type SiteSettings struct {
	ID                    uint            `json:"-" gorm:"primaryKey"`
	CODEnabled            bool            `json:"cod_enabled"`
	HostedGatewayEnabled  bool            `json:"hosted_gateway_enabled"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold" gorm:"type:numeric(12,2)"`
	ShippingCharge        decimal.Decimal `json:"shipping_charge" gorm:"type:numeric(12,2)"`
	CouponsEnabled        bool            `json:"coupons_enabled"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultSiteSettings is used until an admin saves settings.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		ID:                    1,
		CODEnabled:            true,
		HostedGatewayEnabled:  true,
		FreeShippingThreshold: decimal.NewFromInt(999),
		ShippingCharge:        decimal.NewFromInt(49),
		CouponsEnabled:        true,
	}
}

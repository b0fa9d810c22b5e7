package services

import (
	"errors"
	"fmt"

	"mythmanga/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a payable total is not positive in minor units.
var ErrInvalidAmount = errors.New("checkout: payable amount must be positive")

var hundred = decimal.NewFromInt(100)

// ComputeTotal prices an order: shipping is free at or above threshold and the
// total never drops below zero. Negative discounts count as zero.
func ComputeTotal(subtotal, threshold, shippingCost, discount decimal.Decimal) models.PriceBreakdown {
	shipping := shippingCost
	if subtotal.GreaterThanOrEqual(threshold) {
		shipping = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.PriceBreakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

// ToMinorUnits converts a total to integer minor units, rounding half away from zero.
func ToMinorUnits(total decimal.Decimal) (int64, error) {
	minor := total.Mul(hundred).Round(0)
	if !minor.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, total.String())
	}
	return minor.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits to the cent.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

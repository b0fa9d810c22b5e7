package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mythmanga/internal/models"
	"mythmanga/internal/repositories"

	"github.com/shopspring/decimal"
)

// CouponResult is the outcome of applying a code to a subtotal.
type CouponResult struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}

// CouponService validates coupon codes.
type CouponService struct {
	repo repositories.CouponRepository
	now  func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo repositories.CouponRepository) *CouponService {
	return &CouponService{repo: repo, now: time.Now}
}

// Apply computes the discount of code against subtotal from scratch. Rejections
// are reported in the result; the error is reserved for lookup failures.
func (s *CouponService) Apply(ctx context.Context, code string, subtotal decimal.Decimal, enabled bool) (CouponResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	result := CouponResult{Code: code, Discount: decimal.Zero}

	if !enabled {
		result.Message = "Coupons are currently disabled"
		return result, nil
	}
	if code == "" {
		result.Message = "Please enter a coupon code"
		return result, nil
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, repositories.ErrCouponNotFound) {
		result.Message = "Invalid coupon code"
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to look up coupon: %w", err)
	}

	switch {
	case !coupon.Active:
		result.Message = "This coupon is no longer active"
		return result, nil
	case coupon.ExpiresAt != nil && !s.now().Before(*coupon.ExpiresAt):
		result.Message = "This coupon has expired"
		return result, nil
	case subtotal.LessThan(coupon.MinSubtotal):
		result.Message = fmt.Sprintf("Minimum order of %s required for this coupon", coupon.MinSubtotal.StringFixed(2))
		return result, nil
	}

	var discount decimal.Decimal
	switch coupon.Kind {
	case models.CouponKindPercent:
		discount = subtotal.Mul(coupon.Value).Div(hundred).Round(2)
		if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount) {
			discount = coupon.MaxDiscount
		}
		result.Message = fmt.Sprintf("Coupon %s applied: %s%% off", code, coupon.Value.String())
	case models.CouponKindFlat:
		discount = coupon.Value
		result.Message = fmt.Sprintf("Coupon %s applied: %s off", code, coupon.Value.StringFixed(2))
	default:
		result.Message = "Invalid coupon code"
		return result, nil
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	result.Valid = true
	result.Discount = discount
	return result, nil
}

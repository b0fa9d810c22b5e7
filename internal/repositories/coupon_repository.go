package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mythmanga/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCouponNotFound is returned when no coupon has the requested code.
var ErrCouponNotFound = errors.New("coupon not found")

// CouponRepository looks up discount codes.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Upsert(ctx context.Context, coupon *models.Coupon) error
}

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{db: db}
}

// GetByCode matches codes case-insensitively; codes are stored upper-case.
func (r *GORMCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, normalized)
		}
		return nil, fmt.Errorf("failed to get coupon %s: %w", normalized, err)
	}
	return &coupon, nil
}

func (r *GORMCouponRepository) Upsert(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(coupon).Error
	if err != nil {
		return fmt.Errorf("failed to upsert coupon %s: %w", coupon.Code, err)
	}
	return nil
}

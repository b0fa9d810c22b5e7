package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mythmanga/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// invalid_text_representation, raised by PostgreSQL for a malformed uuid literal.
const pgInvalidTextRepresentation = "22P02"

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts a single order row.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByPaymentID retrieves the order carrying the given gateway payment id.
func (r *GORMOrderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment %s", ErrOrderNotFound, paymentID)
		}
		return nil, fmt.Errorf("failed to get order by payment ID %s: %w", paymentID, err)
	}
	return &order, nil
}

// ListByOwner selects the owner's orders ordered by creation time, newest first.
func (r *GORMOrderRepository) ListByOwner(ctx context.Context, column OwnerColumn, owner string) ([]models.Order, error) {
	if err := checkOwnerColumn(column, owner); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", column), owner).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		if isIdentityMismatch(err) {
			return nil, fmt.Errorf("%w: %v", ErrIdentityMismatch, err)
		}
		return nil, fmt.Errorf("failed to list orders by %s: %w", column, err)
	}
	return orders, nil
}

func isIdentityMismatch(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInvalidTextRepresentation
	}
	return strings.Contains(strings.ToLower(err.Error()), "uuid")
}

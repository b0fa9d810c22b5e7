package repositories

import (
	"context"
	"errors"

	"mythmanga/internal/models"

	"github.com/google/uuid"
)

// OwnerColumn names a column that references an order's owner.
type OwnerColumn string

const (
	// OwnerColumnUserID is the UUID-typed owner column.
	OwnerColumnUserID OwnerColumn = "user_id"
	// OwnerColumnUserIdentifier accepts any identity shape.
	OwnerColumnUserIdentifier OwnerColumn = "user_identifier"
)

var (
	// ErrOrderNotFound is returned when no order has the requested ID.
	ErrOrderNotFound = errors.New("order not found")
	// ErrIdentityMismatch is returned when the owner value does not fit the column's type.
	ErrIdentityMismatch = errors.New("owner identity does not match column type")
	// ErrUnknownOwnerColumn is returned for columns other than the owner columns.
	ErrUnknownOwnerColumn = errors.New("unknown owner column")
)

// OrderRepository defines the record store operations checkout needs.
// Orders are only ever inserted here; updates belong to fulfillment.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByPaymentID finds the order a gateway payment settled.
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	// ListByOwner returns the owner's orders, newest first.
	ListByOwner(ctx context.Context, column OwnerColumn, owner string) ([]models.Order, error)
}

// checkOwnerColumn rejects unknown columns and non-UUID values for the UUID column.
func checkOwnerColumn(column OwnerColumn, owner string) error {
	switch column {
	case OwnerColumnUserID:
		if _, err := uuid.Parse(owner); err != nil {
			return ErrIdentityMismatch
		}
		return nil
	case OwnerColumnUserIdentifier:
		return nil
	default:
		return ErrUnknownOwnerColumn
	}
}

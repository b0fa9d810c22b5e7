package repositories

import (
	"context"
	"errors"

	"mythmanga/internal/models"
)

// ErrProductNotFound is returned when no product has the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the catalog reads the cart prices from.
type ProductRepository interface {
	// List returns the catalog, optionally filtered by category.
	List(ctx context.Context, category string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Upsert inserts or replaces a product; used for catalog seeding.
	Upsert(ctx context.Context, product *models.Product) error
}

package services

import (
	"context"
	"errors"
	"fmt"

	"mythmanga/internal/models"
	"mythmanga/internal/repositories"
)

// ErrInsufficientStock is returned when a cart line asks for more than is in stock.
var ErrInsufficientStock = errors.New("insufficient stock")

// AddItemRequest adds quantity units of a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=99"`
}

// CartService manages per-client carts priced from the catalog.
type CartService struct {
	carts    repositories.CartStore
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartStore, products repositories.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// Get returns the client's cart.
func (s *CartService) Get(ctx context.Context, clientID string) (models.Cart, error) {
	return s.carts.Get(ctx, clientID)
}

// AddItem prices the product at its current catalog price and merges it into
// an existing line when present.
func (s *CartService) AddItem(ctx context.Context, clientID string, req AddItemRequest) (models.Cart, error) {
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return models.Cart{}, fmt.Errorf("product %s not found: %w", req.ProductID, err)
	}

	cart, err := s.carts.Get(ctx, clientID)
	if err != nil {
		return models.Cart{}, err
	}

	idx := -1
	for i, item := range cart.Items {
		if item.ProductID == product.ID {
			idx = i
			break
		}
	}

	quantity := req.Quantity
	if idx >= 0 {
		quantity += cart.Items[idx].Quantity
	}
	if product.Stock < quantity {
		return models.Cart{}, fmt.Errorf("%w for product %s (requested: %d, available: %d)", ErrInsufficientStock, product.Name, quantity, product.Stock)
	}

	line := models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
	}
	if idx >= 0 {
		cart.Items[idx] = line
	} else {
		cart.Items = append(cart.Items, line)
	}

	cart.ClientID = clientID
	if err := s.carts.Save(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

// Clear empties the client's cart.
func (s *CartService) Clear(ctx context.Context, clientID string) error {
	return s.carts.Clear(ctx, clientID)
}

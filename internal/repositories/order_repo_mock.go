package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mythmanga/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order. IDs and non-empty payment IDs must be unique.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		return fmt.Errorf("order ID is required")
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order with ID %s already exists", order.ID)
	}
	if order.PaymentID != "" {
		for _, existing := range r.orders {
			if existing.PaymentID == order.PaymentID {
				return fmt.Errorf("payment %s already settles order %s", order.PaymentID, existing.ID)
			}
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	r.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return &order, nil
}

func (r *MockOrderRepository) GetByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if paymentID != "" && order.PaymentID == paymentID {
			return &order, nil
		}
	}
	return nil, fmt.Errorf("%w: payment %s", ErrOrderNotFound, paymentID)
}

// ListByOwner returns the owner's orders, newest first.
func (r *MockOrderRepository) ListByOwner(_ context.Context, column OwnerColumn, owner string) ([]models.Order, error) {
	if err := checkOwnerColumn(column, owner); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Order, 0)
	for _, order := range r.orders {
		ref := order.UserID
		if column == OwnerColumnUserIdentifier {
			ref = order.UserIdentifier
		}
		if ref != nil && *ref == owner {
			list = append(list, order)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Len reports how many orders are stored.
func (r *MockOrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

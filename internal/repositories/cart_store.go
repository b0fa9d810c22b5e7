package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mythmanga/internal/cache"
	"mythmanga/internal/models"
)

const (
	cartKeyPrefix = "cart:"
	cartTTL       = 30 * 24 * time.Hour
)

// CartStore keeps one cart snapshot per client.
type CartStore interface {
	// Get returns the client's cart; a missing cart is empty, not an error.
	Get(ctx context.Context, clientID string) (models.Cart, error)
	Save(ctx context.Context, cart models.Cart) error
	Clear(ctx context.Context, clientID string) error
}

// RedisCartStore stores carts as JSON values on the cache.
type RedisCartStore struct {
	cache cache.Cache
}

// NewRedisCartStore creates a new instance of RedisCartStore.
func NewRedisCartStore(c cache.Cache) *RedisCartStore {
	return &RedisCartStore{cache: c}
}

func (s *RedisCartStore) Get(ctx context.Context, clientID string) (models.Cart, error) {
	raw, err := s.cache.Get(ctx, cartKeyPrefix+clientID)
	if errors.Is(err, cache.ErrNotFound) {
		return models.Cart{ClientID: clientID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("failed to read cart for %s: %w", clientID, err)
	}

	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return models.Cart{}, fmt.Errorf("failed to decode cart for %s: %w", clientID, err)
	}
	return cart, nil
}

func (s *RedisCartStore) Save(ctx context.Context, cart models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.cache.Set(ctx, cartKeyPrefix+cart.ClientID, raw, cartTTL); err != nil {
		return fmt.Errorf("failed to save cart for %s: %w", cart.ClientID, err)
	}
	return nil
}

func (s *RedisCartStore) Clear(ctx context.Context, clientID string) error {
	if err := s.cache.Delete(ctx, cartKeyPrefix+clientID); err != nil {
		return fmt.Errorf("failed to clear cart for %s: %w", clientID, err)
	}
	return nil
}

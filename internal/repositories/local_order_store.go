package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mythmanga/internal/cache"
	"mythmanga/internal/logger"
	"mythmanga/internal/models"

	"go.uber.org/zap"
)

const localOrdersKeyPrefix = "orders:local:"

// LocalOrderStore is the per-client fallback order list. Entries are only
// ever appended.
type LocalOrderStore interface {
	Append(ctx context.Context, clientID string, order models.LocalOrder) error
	// List returns the client's entries oldest first.
	List(ctx context.Context, clientID string) ([]models.LocalOrder, error)
}

// RedisLocalOrderStore keeps each client's list as a Redis list.
type RedisLocalOrderStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisLocalOrderStore creates a store; a zero ttl keeps lists forever.
func NewRedisLocalOrderStore(c cache.Cache, ttl time.Duration) *RedisLocalOrderStore {
	return &RedisLocalOrderStore{cache: c, ttl: ttl}
}

func (s *RedisLocalOrderStore) Append(ctx context.Context, clientID string, order models.LocalOrder) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode local order %s: %w", order.ID, err)
	}
	if err := s.cache.Append(ctx, localOrdersKeyPrefix+clientID, raw, s.ttl); err != nil {
		return fmt.Errorf("failed to append local order %s: %w", order.ID, err)
	}
	return nil
}

// List skips entries that no longer decode instead of failing the whole read.
func (s *RedisLocalOrderStore) List(ctx context.Context, clientID string) ([]models.LocalOrder, error) {
	items, err := s.cache.List(ctx, localOrdersKeyPrefix+clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read local orders for %s: %w", clientID, err)
	}

	orders := make([]models.LocalOrder, 0, len(items))
	for _, raw := range items {
		var order models.LocalOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			logger.Get().Warn("Skipping undecodable local order",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

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

const attemptKeyPrefix = "checkout:attempt:"

var (
	// ErrAttemptNotFound is returned for unknown or expired checkout attempts.
	ErrAttemptNotFound = errors.New("checkout attempt not found")
	// ErrAttemptStateChanged is returned by SaveIf when the stored attempt has
	// left the expected state.
	ErrAttemptStateChanged = errors.New("checkout attempt state changed")
)

// AttemptStore keeps checkout attempts between the requests of one exchange.
type AttemptStore interface {
	Save(ctx context.Context, attempt *models.CheckoutAttempt, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.CheckoutAttempt, error)
	// SaveIf stores the attempt only while the stored copy is still in the
	// expected state, so one callback at a time can move it on.
	SaveIf(ctx context.Context, attempt *models.CheckoutAttempt, expected models.CheckoutState, ttl time.Duration) error
}

// RedisAttemptStore stores attempts as JSON values with a TTL.
type RedisAttemptStore struct {
	cache cache.Cache
}

// NewRedisAttemptStore creates a new instance of RedisAttemptStore.
func NewRedisAttemptStore(c cache.Cache) *RedisAttemptStore {
	return &RedisAttemptStore{cache: c}
}

func (s *RedisAttemptStore) Save(ctx context.Context, attempt *models.CheckoutAttempt, ttl time.Duration) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt %s: %w", attempt.ID, err)
	}
	if err := s.cache.Set(ctx, attemptKeyPrefix+attempt.ID, raw, ttl); err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (s *RedisAttemptStore) SaveIf(ctx context.Context, attempt *models.CheckoutAttempt, expected models.CheckoutState, ttl time.Duration) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt %s: %w", attempt.ID, err)
	}

	err = s.cache.Update(ctx, attemptKeyPrefix+attempt.ID, ttl, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attempt.ID)
		}
		var stored models.CheckoutAttempt
		if err := json.Unmarshal(current, &stored); err != nil {
			return nil, fmt.Errorf("failed to decode attempt %s: %w", attempt.ID, err)
		}
		if stored.State != expected {
			return nil, fmt.Errorf("%w: attempt %s is %s", ErrAttemptStateChanged, attempt.ID, stored.State)
		}
		return raw, nil
	})
	if errors.Is(err, cache.ErrConflict) {
		return fmt.Errorf("%w: attempt %s", ErrAttemptStateChanged, attempt.ID)
	}
	if err != nil && !errors.Is(err, ErrAttemptStateChanged) && !errors.Is(err, ErrAttemptNotFound) {
		return fmt.Errorf("failed to save attempt %s: %w", attempt.ID, err)
	}
	return err
}

func (s *RedisAttemptStore) Get(ctx context.Context, id string) (*models.CheckoutAttempt, error) {
	raw, err := s.cache.Get(ctx, attemptKeyPrefix+id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read attempt %s: %w", id, err)
	}

	var attempt models.CheckoutAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("failed to decode attempt %s: %w", id, err)
	}
	return &attempt, nil
}

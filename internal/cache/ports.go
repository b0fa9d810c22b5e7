package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrConflict is returned by Update when the key changed under it.
	ErrConflict = errors.New("key modified concurrently")
)

// UpdateFunc maps the current value (nil when the key is missing) to the
// value to store. Returning an error aborts the update.
type UpdateFunc func(current []byte) ([]byte, error)

// Cache defines the caching operations the stores build on.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns ErrNotFound (wrapped) when the key is missing.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified key and TTL.
	// TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Update rewrites the value at key only if nothing else wrote it between
	// the read handed to fn and the write. A lost race returns ErrConflict.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error

	// Delete removes a value from the cache by key.
	Delete(ctx context.Context, key string) error

	// Append pushes a value to the tail of the list stored at key.
	// A positive TTL refreshes the list's expiration.
	Append(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// List returns every element of the list stored at key, oldest first.
	List(ctx context.Context, key string) ([][]byte, error)

	// Ping checks if the cache service is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indicates that the key is not present or has expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented TTL cache.
// Implementations must be thread-safe.
type Cache interface {
	// Get returns the cached value for key.
	// Returns ErrMiss if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for the given TTL.
	// A non-positive TTL stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases cache resources.
	Close() error
}

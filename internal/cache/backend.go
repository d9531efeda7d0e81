// Package cache provides the pluggable cache backend used by the identity
// resolver and profile store. Backends are byte-oriented; typed wrappers
// live with their consumers.
package cache

import (
	"context"
	"time"
)

// Backend defines the interface for cache implementations.
// A ttl <= 0 stores the entry without expiry.
type Backend interface {
	// Get retrieves a value from the cache.
	// Returns (value, found, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection.
	Close() error
}

// Package cache defines the shared key-value cache contract used by the rate
// limiter. Production deployments point it at a shared backend; tests and
// single-node setups use the in-memory implementation. Call sites must not
// assume either.
package cache

import (
	"context"
	"time"
)

// Cache is a string-keyed cache with per-key TTL.
type Cache interface {
	// Get retrieves a value, reporting whether the key was present and
	// unexpired.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetTTL stores a value that expires after ttl.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Clear removes all keys.
	Clear(ctx context.Context) error
}

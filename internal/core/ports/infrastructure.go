package ports

import (
	"context"
	"time"
)

// Cache stores identity snapshots in front of the primary store. Errors are advisory:
// callers fall back to the store and never fail a request because of the cache.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value for ttl; ttl <= 0 keeps the entry until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops every key. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// HealthChecker probes one backing dependency for the /health endpoint.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

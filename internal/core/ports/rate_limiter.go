package ports

import (
	"context"
	"time"
)

// RateLimitRepository stores fixed-window request counters. The implementation owns key
// namespacing and counter expiry.
type RateLimitRepository interface {
	// IncrementWindow counts one request for key in the window containing now and returns the
	// new count together with the window start.
	IncrementWindow(ctx context.Context, key string, window time.Duration, now time.Time) (count int, windowStart time.Time, err error)
}

// RateLimiterService throttles the unauthenticated confirmation endpoints per caller key.
type RateLimiterService interface {
	// Allow consumes one request for key. remaining is what is left in the current window,
	// limit the configured maximum and reset the end of the window.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, limit int, reset time.Time, err error)
}

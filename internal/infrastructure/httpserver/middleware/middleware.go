// Package middleware holds the echo middleware of the confirmation API.
package middleware

import (
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// Set bundles the middleware the server installs.
type Set struct {
	JWT       *JWTMiddleware
	Logging   *LoggingMiddleware
	RateLimit *RateLimitMiddleware
	Metrics   *MetricsMiddleware
}

// NewSet builds every middleware from its dependencies. A nil limiter disables throttling.
func NewSet(limiter ports.RateLimiterService, logger *logrus.Logger, jwtSecret string, metrics *HTTPMetrics) *Set {
	return &Set{
		JWT:       NewJWTMiddleware(jwtSecret, logger),
		Logging:   NewLoggingMiddleware(logger),
		RateLimit: NewRateLimitMiddleware(limiter, logger),
		Metrics:   NewMetricsMiddleware(metrics),
	}
}

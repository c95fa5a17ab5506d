package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

type RateLimitMiddleware struct {
	limiter ports.RateLimiterService
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(limiter ports.RateLimiterService, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, logger: logger}
}

// Handler throttles per client IP and reports the window in X-RateLimit-* headers. A
// limiter error lets the request through.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.limiter == nil {
				return next(c)
			}
			ip := c.RealIP()

			allowed, remaining, limit, reset, err := r.limiter.Allow(c.Request().Context(), ip)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if err != nil {
				if r.logger != nil {
					r.logger.WithError(err).WithField("ip", ip).Warn("rate limiter unavailable, allowing request")
				}
				return next(c)
			}
			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many confirmation requests, try again later")
			}
			return next(c)
		}
	}
}

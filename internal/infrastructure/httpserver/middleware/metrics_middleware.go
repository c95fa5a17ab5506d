package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics are the per-route request collectors.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec   // method, endpoint, status
	Duration *prometheus.HistogramVec // method, endpoint
}

type MetricsMiddleware struct {
	metrics *HTTPMetrics
}

func NewMetricsMiddleware(metrics *HTTPMetrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics}
}

// Collect records one observation per request, labeled by route template.
func (m *MetricsMiddleware) Collect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.metrics == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			method := c.Request().Method
			m.metrics.Requests.WithLabelValues(method, endpoint, strconv.Itoa(c.Response().Status)).Inc()
			m.metrics.Duration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avatarctic/phone-confirmation/internal/infrastructure/httpserver/middleware"
)

var httpMetrics = &middleware.HTTPMetrics{
	Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"}),
	Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "HTTP request latency by method and route.",
	}, []string{"method", "endpoint"}),
}

func init() {
	prometheus.MustRegister(httpMetrics.Requests, httpMetrics.Duration)
}

// logMetrics lists the exported series once at startup.
func (s *Server) logMetrics() {
	s.logger.WithField("series", []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"phone_confirmation_tokens_issued_total",
		"phone_confirmation_notifications_total",
		"phone_confirmation_attempts_total",
	}).Debug("prometheus metrics exposed on /metrics")
}

func metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

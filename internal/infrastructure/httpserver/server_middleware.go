package httpserver

import (
	"github.com/labstack/echo/v4/middleware"
)

// requestBodyLimit caps JSON payloads; every request body here is a phone number or token.
const requestBodyLimit = "16K"

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit(requestBodyLimit))
	s.echo.Use(middleware.Secure())
	if len(s.config.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.config.AllowedOrigins}))
	} else {
		s.echo.Use(middleware.CORS())
	}
	s.echo.Use(middleware.RequestID())

	s.echo.Use(s.middleware.Metrics.Collect())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}

package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	customMiddleware "github.com/avatarctic/phone-confirmation/internal/infrastructure/httpserver/middleware"
)

// ServerConfig is the listener configuration. TLS is enabled when both files are set.
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
}

// ServerDeps are the application services behind the API.
type ServerDeps struct {
	ConfirmationService ports.ConfirmationService
	IdentityService     ports.IdentityService
	RateLimiterService  ports.RateLimiterService
	HealthCheckers      []ports.HealthChecker
}

// Server is the echo application exposing the confirmation endpoints and the JWT-protected
// identity management API.
type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	confirmationSvc ports.ConfirmationService
	identityService ports.IdentityService
	middleware      *customMiddleware.Set
	healthCheckers  []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, jwtSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		confirmationSvc: deps.ConfirmationService,
		identityService: deps.IdentityService,
		healthCheckers:  deps.HealthCheckers,
		middleware:      customMiddleware.NewSet(deps.RateLimiterService, logger, jwtSecret, httpMetrics),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

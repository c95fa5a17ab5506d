package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Addr is the listen address built from the configured host and port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// Start serves until Shutdown is called. http.ErrServerClosed is not reported as an error.
func (s *Server) Start() error {
	s.logMetrics()

	srv := &http.Server{
		Addr:         s.Addr(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	tls := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	s.logger.WithFields(logrus.Fields{"addr": srv.Addr, "tls": tls}).Info("starting confirmation API")

	var err error
	if tls {
		err = s.echo.StartTLS(srv.Addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		s.logger.Warn("TLS certificates not configured, serving plain HTTP")
		err = s.echo.StartServer(srv)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

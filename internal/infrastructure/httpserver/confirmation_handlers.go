package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// requestConfirmation resends the confirmation message to the identity owning a phone number
func (s *Server) requestConfirmation(c echo.Context) error {
	var req identity.RequestConfirmationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lookup := map[string]string{identity.FieldPhone: req.Phone, identity.FieldID: req.ID}
	ident, err := s.confirmationSvc.RequestConfirmation(c.Request().Context(), lookup, identity.NewRequestState())
	if err != nil {
		return s.confirmationError(c, err, "failed to send confirmation message")
	}

	if !ident.Errors.Empty() {
		return fieldErrorResponse(c, ident.Errors)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "confirmation message sent",
	})
}

// confirmPhone consumes a confirmation token from the query string or the request body
func (s *Server) confirmPhone(c echo.Context) error {
	var req identity.ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	ident, err := s.confirmationSvc.ConfirmByToken(c.Request().Context(), req.Token, identity.NewRequestState())
	if err != nil {
		return s.confirmationError(c, err, "failed to confirm phone number")
	}

	if !ident.Errors.Empty() {
		return fieldErrorResponse(c, ident.Errors)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "phone number confirmed",
		"identity": ident,
	})
}

// confirmationError logs an infrastructure failure and maps a lost optimistic-concurrency
// race to 409.
func (s *Server) confirmationError(c echo.Context, err error, message string) error {
	entry := s.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Path()}).WithError(err)
	if errors.Is(err, ports.ErrStaleIdentity) {
		entry.Warn("confirmation lost a concurrent update")
		return echo.NewHTTPError(http.StatusConflict, "identity was modified concurrently, please retry")
	}
	entry.Error(message)
	return echo.NewHTTPError(http.StatusInternalServerError, message)
}

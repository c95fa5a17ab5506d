package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/httpserver/helpers"
)

// Identity handlers
func (s *Server) registerIdentity(c echo.Context) error {
	var req identity.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := s.identityService.Register(c.Request().Context(), &req, identity.NewRequestState())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create identity")
	}

	if !created.Errors.Empty() {
		return fieldErrorResponse(c, created.Errors)
	}

	subject, _ := helpers.Subject(c)
	s.logger.WithFields(logrus.Fields{"identity_id": created.ID, "actor": subject}).Info("identity registered")

	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getIdentity(c echo.Context) error {
	id, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	ident, err := s.identityService.Get(c.Request().Context(), id)
	if err != nil {
		return identityLookupError(err)
	}

	return c.JSON(http.StatusOK, ident)
}

// getIdentityStatus reports the confirmation state and whether the identity may authenticate
func (s *Server) getIdentityStatus(c echo.Context) error {
	id, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	status, err := s.identityService.Status(c.Request().Context(), id)
	if err != nil {
		return identityLookupError(err)
	}

	return c.JSON(http.StatusOK, status)
}

func (s *Server) changePhone(c echo.Context) error {
	id, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	var req identity.ChangePhoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	st := identity.NewRequestState()
	if req.SkipReconfirmation {
		st.SkipReconfirmationPostponeOnce()
	}
	if req.SkipNotification {
		st.SkipConfirmationNotification()
	}

	updated, err := s.identityService.ChangePhone(c.Request().Context(), id, req.Phone, st)
	if err != nil {
		if errors.Is(err, ports.ErrStaleIdentity) {
			return echo.NewHTTPError(http.StatusConflict, "identity was modified concurrently, please retry")
		}
		return identityLookupError(err)
	}

	if !updated.Errors.Empty() {
		return fieldErrorResponse(c, updated.Errors)
	}

	return c.JSON(http.StatusOK, updated)
}

// skipConfirmation marks an identity confirmed without a token
func (s *Server) skipConfirmation(c echo.Context) error {
	id, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	updated, err := s.identityService.SkipConfirmation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrStaleIdentity) {
			return echo.NewHTTPError(http.StatusConflict, "identity was modified concurrently, please retry")
		}
		return identityLookupError(err)
	}

	return c.JSON(http.StatusOK, updated)
}

func parseIdentityID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid identity ID")
	}
	return id, nil
}

func identityLookupError(err error) error {
	if errors.Is(err, ports.ErrIdentityNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "identity not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to process identity")
}

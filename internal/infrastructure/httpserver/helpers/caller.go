// Package helpers carries request-scoped values between the auth middleware and handlers.
package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const subjectKey = "caller_subject"

// SetSubject records the authenticated caller on the echo context.
func SetSubject(c echo.Context, subject string) {
	c.Set(subjectKey, subject)
}

// Subject returns the caller recorded by SetSubject.
func Subject(c echo.Context) (string, error) {
	s, ok := c.Get(subjectKey).(string)
	if !ok || s == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid caller context")
	}
	return s, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

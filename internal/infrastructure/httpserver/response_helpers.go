package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

// fieldErrorStatus maps the recorded failures of an operation to an HTTP status.
func fieldErrorStatus(errs identity.FieldErrors) int {
	if errs.Has(identity.ErrKindNotFound) {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

func fieldErrorResponse(c echo.Context, errs identity.FieldErrors) error {
	return c.JSON(fieldErrorStatus(errs), map[string]interface{}{
		"message": errs.Error(),
		"errors":  errs,
	})
}

package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"sme-lending-backend/internal/domain/lending"
)

// writeDomainError maps the error taxonomy to a 4xx response. Anything
// outside the taxonomy is an internal error: logged with context, surfaced
// generically.
func writeDomainError(c echo.Context, err error) error {
	var code int
	switch {
	case errors.Is(err, lending.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, lending.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, lending.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, lending.ErrInvalidTransition),
		errors.Is(err, lending.ErrConflictingVersion):
		code = http.StatusConflict
	case errors.Is(err, lending.ErrPreconditionFailed):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, lending.ErrDocumentLocked):
		code = http.StatusLocked
	default:
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}

package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
)

// toHTTPError maps service errors onto responses. Messages stay generic so a
// client cannot tell which check failed.
func toHTTPError(err error) (int, *echo.HTTPError) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, echo.NewHTTPError(http.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		return http.StatusUnauthorized, echo.NewHTTPError(http.StatusUnauthorized, "email not verified")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, echo.NewHTTPError(http.StatusServiceUnavailable, "avatar storage unavailable")
	default:
		return http.StatusInternalServerError, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type BearerAuth struct {
	Auth Authenticator
}

func NewBearerAuth(a Authenticator) *BearerAuth {
	return &BearerAuth{Auth: a}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "bearer_auth")

		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}

		user, err := m.Auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) || errors.Is(err, service.ErrEmailNotVerified) {
				l.Warn("auth_failed", "status", 401, "error", err)
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}
			l.Error("auth_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}

		c.Set(userKey, user)
		return next(c)
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok && u != nil
}

package ratelimitmw

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// PerIP rejects a client with 429 once it exceeds the limiter's budget for the
// matched route. Limiter failures let the request through.
func PerIP(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := c.Path() + ":" + c.RealIP()

			ok, err := l.Allow(ctx, key)
			if err != nil {
				logging.FromContext(ctx).Warn("rate_limit_unavailable",
					"key", key,
					"error", err,
				)
				return next(c)
			}
			if !ok {
				logging.FromContext(ctx).Info("rate_limited", "key", key)
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

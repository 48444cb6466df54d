package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	ratelimitmw "github.com/Skotchmaster/contacts_api/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/middleware"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	UsersHandler *UsersHTTP
	Bearer       *middleware.BearerAuth
	// Limiter guards the unauthenticated auth routes; nil disables it.
	Limiter ratelimitmw.Limiter
	// Ready reports whether dependencies are reachable.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	public := e.Group("/auth")
	if d.Limiter != nil {
		public.Use(ratelimitmw.PerIP(d.Limiter))
	}
	public.POST("/register", d.AuthHandler.Register)
	public.GET("/verify_email/:token", d.AuthHandler.VerifyEmail)
	public.POST("/login", d.AuthHandler.Login)
	public.POST("/refresh", d.AuthHandler.Refresh)
	public.POST("/request_password_reset", d.AuthHandler.RequestPasswordReset)
	public.POST("/reset_password", d.AuthHandler.ResetPassword)

	private := e.Group("/users")
	private.Use(d.Bearer.RequireAuth)
	private.GET("/me", d.UsersHandler.Me)
	private.POST("/me/password", d.UsersHandler.ChangePassword)
	private.PATCH("/avatar", d.UsersHandler.UpdateAvatar)
}

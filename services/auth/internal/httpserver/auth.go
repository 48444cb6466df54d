package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/transport"
)

const resetRequestedMessage = "If the email is registered, a password reset link has been sent"

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		code, he := toHTTPError(err)
		l.Warn("register_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusCreated, transport.NewUserResponse(user))
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify_email")

	if _, err := h.Svc.VerifyEmail(ctx, c.Param("token")); err != nil {
		code, he := toHTTPError(err)
		l.Warn("verify_email_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Email verified successfully"})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		code, he := toHTTPError(err)
		l.Warn("login_failed", "status", code, "error", err)
		return he
	}

	l.Info("login_successful")
	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		code, he := toHTTPError(err)
		l.Warn("refresh_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
	})
}

// RequestPasswordReset answers the same way whether or not the email exists.
func (h *AuthHTTP) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_request_password_reset")

	var req transport.PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("password_reset_request_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		l.Error("password_reset_request_failed", "status", 500, "error", err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: resetRequestedMessage})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_reset_password")

	var req transport.ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("reset_password_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ConfirmPasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		code, he := toHTTPError(err)
		l.Warn("reset_password_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password has been reset successfully"})
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/middleware"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/transport"
)

const maxAvatarBytes = 5 << 20

type UsersHTTP struct {
	Svc *service.AuthService
}

func (h *UsersHTTP) Me(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *UsersHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_change_password")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}

	var req transport.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("change_password_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
		code, he := toHTTPError(err)
		l.Warn("change_password_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password changed successfully"})
}

func (h *UsersHTTP) UpdateAvatar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_avatar")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("avatar_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxAvatarBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		l.Error("avatar_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	defer f.Close()

	updated, err := h.Svc.UpdateAvatar(ctx, user, f, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		code, he := toHTTPError(err)
		l.Warn("avatar_failed", "status", code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.AvatarResponse{AvatarURL: *updated.Avatar})
}

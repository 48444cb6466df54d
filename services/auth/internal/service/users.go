package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	pkg_hash "github.com/Skotchmaster/contacts_api/pkg/hash"
	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/repo"
)

var ErrStorageUnavailable = errors.New("avatar storage unavailable")

type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Authenticate resolves the owner of an access token. Unverified owners are
// refused like the login flow does.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.Codec.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.Users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

// ChangePassword replaces the password of an authenticated user. Tokens
// issued before the change stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", user.ID)

	if newPassword == "" {
		return ErrValidation
	}
	if !pkg_hash.CheckPassword(user.HashedPassword, oldPassword) {
		l.Warn("change_password_failed", "status", 401, "reason", "wrong current password")
		return ErrInvalidCredentials
	}

	pwHash, err := pkg_hash.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return err
	}

	user.HashedPassword = pwHash
	if err := s.Users.Update(ctx, user); err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return err
	}

	l.Info("password_changed")
	return nil
}

var avatarExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *AuthService) UpdateAvatar(ctx context.Context, user *models.User, body io.Reader, contentType string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_avatar", "user_id", user.ID)

	if s.Avatars == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := avatarExt[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}

	key := path.Join("avatars", fmt.Sprint(user.ID), uuid.NewString()+ext)
	url, err := s.Avatars.Upload(ctx, key, body, contentType)
	if err != nil {
		l.Error("avatar_upload_failed", "status", 502, "error", err)
		return nil, err
	}

	user.Avatar = &url
	if err := s.Users.Update(ctx, user); err != nil {
		l.Error("avatar_update_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("avatar_updated")
	return user, nil
}

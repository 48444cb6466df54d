package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkg_hash "github.com/Skotchmaster/contacts_api/pkg/hash"
	"github.com/Skotchmaster/contacts_api/pkg/logging"
	"github.com/Skotchmaster/contacts_api/pkg/notify"
	"github.com/Skotchmaster/contacts_api/pkg/tokens"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/repo"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrConflict              = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthorized          = errors.New("unauthorized")
)

const (
	DefaultVerificationTTL = 2 * time.Hour
	DefaultResetTTL        = 2 * time.Hour
)

type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, email, hashedPassword string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type TokenStore interface {
	Issue(ctx context.Context, userID uint, tokenType models.TokenType, ttl time.Duration) (string, error)
	Consume(ctx context.Context, opaque string, tokenType models.TokenType) (uint, error)
}

type AuthService struct {
	Users    UserDirectory
	Tokens   TokenStore
	Codec    *tokens.Codec
	Notifier notify.Notifier
	Avatars  Uploader

	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func purposeFor(t models.TokenType) notify.Purpose {
	switch t {
	case models.TokenEmailVerification:
		return notify.PurposeVerifyEmail
	case models.TokenPasswordReset:
		return notify.PurposeResetPassword
	}
	panic(fmt.Sprintf("service: no notification purpose for token type %q", t))
}

func (s *AuthService) ttl(t models.TokenType) time.Duration {
	switch t {
	case models.TokenEmailVerification:
		if s.VerificationTTL > 0 {
			return s.VerificationTTL
		}
		return DefaultVerificationTTL
	case models.TokenPasswordReset:
		if s.ResetTTL > 0 {
			return s.ResetTTL
		}
		return DefaultResetTTL
	}
	panic(fmt.Sprintf("service: no ttl for token type %q", t))
}

// issueAndNotify stores a token for the user and hands it to the notifier.
// Delivery problems never reach the caller.
func (s *AuthService) issueAndNotify(ctx context.Context, user *models.User, t models.TokenType) error {
	opaque, err := s.Tokens.Issue(ctx, user.ID, t, s.ttl(t))
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Notification{
			Email:   user.Email,
			Token:   opaque,
			Purpose: purposeFor(t),
		})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.register", "email", email)

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		l.Warn("register_error", "status", 409, "reason", "email already registered")
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user, err := s.Users.Create(ctx, email, pwHash)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	if err := s.issueAndNotify(ctx, user, models.TokenEmailVerification); err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue verification token", "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.verify_email")

	userID, err := s.Tokens.Consume(ctx, token, models.TokenEmailVerification)
	if err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			l.Warn("verify_email_failed", "status", 400, "reason", "invalid or expired token")
			return nil, ErrInvalidOrExpiredToken
		}
		l.Error("verify_email_failed", "status", 500, "error", err)
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if !user.IsVerified {
		user.IsVerified = true
		if err := s.Users.Update(ctx, user); err != nil {
			l.Error("verify_email_failed", "status", 500, "error", err)
			return nil, err
		}
	}

	l.Info("email_verified", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !pkg_hash.CheckPassword(user.HashedPassword, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		l.Warn("login_failed", "status", 401, "reason", "email not verified")
		return nil, ErrEmailNotVerified
	}

	res, err := s.issuePair(user.Email)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *AuthService) issuePair(email string) (*LoginResult, error) {
	access, accessExp, err := s.Codec.IssueAccessToken(email)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Codec.IssueRefreshToken(email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh trades a valid refresh token for a new pair. Refresh tokens are
// not tracked, so an old one stays usable until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
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

	return s.issuePair(user.Email)
}

// RequestPasswordReset never tells the caller whether the email is known.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.request_password_reset")

	if email == "" {
		return nil
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Info("password_reset_skipped", "reason", "unknown email")
			return nil
		}
		l.Error("password_reset_request_failed", "status", 500, "error", err)
		return err
	}

	if err := s.issueAndNotify(ctx, user, models.TokenPasswordReset); err != nil {
		l.Error("password_reset_request_failed", "status", 500, "error", err)
		return err
	}

	l.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if newPassword == "" {
		return ErrValidation
	}
	pwHash, err := pkg_hash.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return err
	}

	userID, err := s.Tokens.Consume(ctx, token, models.TokenPasswordReset)
	if err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			l.Warn("password_reset_failed", "status", 400, "reason", "invalid or expired token")
			return ErrInvalidOrExpiredToken
		}
		l.Error("password_reset_failed", "status", 500, "error", err)
		return err
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	user.HashedPassword = pwHash
	if err := s.Users.Update(ctx, user); err != nil {
		l.Error("password_reset_failed", "status", 500, "error", err)
		return err
	}

	l.Info("password_reset", "user_id", user.ID)
	return nil
}

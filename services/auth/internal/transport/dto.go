package transport

import (
	"time"

	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
)

type CredentialsRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	Avatar     *string   `json:"avatar"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		Avatar:     u.Avatar,
		CreatedAt:  u.CreatedAt,
	}
}

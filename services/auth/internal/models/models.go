package models

import "time"

type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null"     json:"email"`
	HashedPassword string    `gorm:"not null"                 json:"-"`
	IsVerified     bool      `gorm:"not null;default:false"   json:"is_verified"`
	Avatar         *string   `                                json:"avatar"`
	CreatedAt      time.Time `                                json:"created_at"`
}

type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
	TokenPasswordReset     TokenType = "password_reset"
)

func (t TokenType) Valid() bool {
	switch t {
	case TokenEmailVerification, TokenPasswordReset:
		return true
	}
	return false
}

// VerificationToken is a single-use credential. Token holds the sha256 hex
// digest of the value that was handed to the user.
type VerificationToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                    json:"id"`
	UserID    uint      `gorm:"index;not null"                              json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex:idx_token_type"         json:"-"`
	TokenType TokenType `gorm:"not null;uniqueIndex:idx_token_type;size:32" json:"token_type"`
	ExpiresAt time.Time `gorm:"not null;index"                              json:"expires_at"`
	CreatedAt time.Time `                                                   json:"created_at"`
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
)

// ErrTokenNotFound covers unknown, expired and already used tokens alike.
var ErrTokenNotFound = errors.New("token not found")

// Issue stores a fresh single-use token for the user and returns the value to
// hand out. Only its digest is persisted.
func (r *GormRepo) Issue(ctx context.Context, userID uint, tokenType models.TokenType, ttl time.Duration) (string, error) {
	if !tokenType.Valid() {
		return "", fmt.Errorf("issue token: unknown type %q", tokenType)
	}

	opaque := uuid.NewString()
	rec := models.VerificationToken{
		UserID:    userID,
		Token:     Sha256Hex(opaque),
		TokenType: tokenType,
		ExpiresAt: r.now().Add(ttl),
	}
	if err := r.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return opaque, nil
}

// Consume redeems a token exactly once. The row is removed with a
// conditional delete and only the caller whose delete hit a row wins.
func (r *GormRepo) Consume(ctx context.Context, opaque string, tokenType models.TokenType) (uint, error) {
	if opaque == "" || !tokenType.Valid() {
		return 0, ErrTokenNotFound
	}

	var (
		userID  uint
		expired bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.VerificationToken
		if err := tx.Where("token = ? AND token_type = ?", Sha256Hex(opaque), tokenType).
			First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		res := tx.Where("id = ?", rec.ID).Delete(&models.VerificationToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrTokenNotFound
		}

		userID = rec.UserID
		expired = !rec.ExpiresAt.After(r.now())
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}

func (r *GormRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&models.VerificationToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

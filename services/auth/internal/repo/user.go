package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserAlreadyExist = errors.New("user already exist")
)

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts an unverified user. The unique index on email decides
// concurrent registrations.
func (r *GormRepo) Create(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	user := models.User{
		Email:          email,
		HashedPassword: hashedPassword,
		IsVerified:     false,
	}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExist
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) Update(ctx context.Context, user *models.User) error {
	res := r.DB.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

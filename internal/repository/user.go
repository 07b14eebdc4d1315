package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"gorm.io/gorm"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateUser gets an existing user or creates a new one
func (r *UserRepository) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	var user database.User
	result := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user)
	if result.Error == nil {
		return &user, nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewDatabaseError(result.Error)
	}

	user = database.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	return &user, nil
}

// GetUserByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	var user database.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound.WithContext("telegram_id", telegramID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return &user, nil
}

// UpdateTimeZone stores the IANA zone used to build a user's schedules
func (r *UserRepository) UpdateTimeZone(ctx context.Context, telegramID int64, name string) error {
	result := r.db.WithContext(ctx).Model(&database.User{}).
		Where("telegram_id = ?", telegramID).
		Update("time_zone", name)
	if result.Error != nil {
		return apperrors.NewDatabaseError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound.WithContext("telegram_id", telegramID)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	user, err := s.users.GetOrCreateUser(ctx, telegramID, username, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetTimeZone validates an IANA zone name and stores it for the user
func (s *UserService) SetTimeZone(ctx context.Context, telegramID int64, name string) error {
	if _, err := time.LoadLocation(name); err != nil || name == "" || name == "Local" {
		return apperrors.NewValidationError("INVALID_TIME_ZONE", fmt.Sprintf("unknown time zone %q", name))
	}
	return s.users.UpdateTimeZone(ctx, telegramID, name)
}

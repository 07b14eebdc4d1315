package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

// UserService handles user-related operations
type UserService interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error)
	SetTimeZone(ctx context.Context, telegramID int64, name string) error
}

// ScheduleService handles the base therapy schedules
type ScheduleService interface {
	SetEntry(ctx context.Context, userID uint, kind, startTime string, value, maxValue float64) error
	GetEntries(ctx context.Context, userID uint, kind string) ([]database.ScheduleEntry, error)
	ClearSchedule(ctx context.Context, userID uint, kind string) error
	TherapySchedules(ctx context.Context, telegramID int64) (*TherapySchedules, error)
}

// OverrideService handles override history operations
type OverrideService interface {
	Enact(ctx context.Context, telegramID int64, settings override.Settings, start time.Time, duration override.Duration, trigger override.EnactTrigger) (override.Override, error)
	Record(ctx context.Context, telegramID int64, o override.Override) error
	EnactPreset(ctx context.Context, telegramID int64, presetID uuid.UUID, start time.Time, trigger override.EnactTrigger) (override.Override, error)
	Cancel(ctx context.Context, telegramID int64) error
	Status(ctx context.Context, telegramID int64) (*OverrideStatus, error)
	Sync(ctx context.Context, telegramID int64, clientID string) (*SyncResult, error)
	Events(ctx context.Context, telegramID int64) ([]history.Event, error)
	SavePreset(ctx context.Context, telegramID int64, preset override.Preset) error
	Presets(ctx context.Context, telegramID int64) ([]override.Preset, error)
	DeletePreset(ctx context.Context, telegramID int64, presetID uuid.UUID) error
}

// BotService handles telegram bot operations
type BotService interface {
	Start(ctx context.Context) error
	Stop()
}

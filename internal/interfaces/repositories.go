package interfaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

// HistoryRepository stores the latest raw snapshot of each user's override
// history. LoadHistory returns errors.ErrHistoryNotFound for unknown users.
type HistoryRepository interface {
	SaveHistory(ctx context.Context, telegramID int64, raw rawvalue.Map) error
	LoadHistory(ctx context.Context, telegramID int64) (rawvalue.Map, error)
}

// PresetRepository defines the contract for override preset storage
type PresetRepository interface {
	SavePreset(ctx context.Context, telegramID int64, preset override.Preset) error
	ListPresets(ctx context.Context, telegramID int64) ([]override.Preset, error)
	GetPreset(ctx context.Context, telegramID int64, id uuid.UUID) (override.Preset, error)
	DeletePreset(ctx context.Context, telegramID int64, id uuid.UUID) error
}

// AnchorStore keeps the last sync anchor handed to each client of a user.
// A nil anchor means the client has never synced.
type AnchorStore interface {
	GetAnchor(ctx context.Context, telegramID int64, clientID string) (*history.QueryAnchor, error)
	SetAnchor(ctx context.Context, telegramID int64, clientID string, anchor history.QueryAnchor) error
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PresetRepository handles override preset data operations
type PresetRepository struct {
	db *gorm.DB
}

// NewPresetRepository creates a new preset repository
func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// SavePreset creates the preset or replaces the one with the same ID
func (r *PresetRepository) SavePreset(ctx context.Context, telegramID int64, preset override.Preset) error {
	record := presetToModel(telegramID, preset)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "preset_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"symbol", "name", "scale_factor", "target_min", "target_max", "duration_minutes", "updated_at",
			}),
		}).
		Create(&record).Error
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("preset_id", preset.ID.String())
	}
	return nil
}

// ListPresets returns a user's presets in creation order
func (r *PresetRepository) ListPresets(ctx context.Context, telegramID int64) ([]override.Preset, error) {
	var records []database.OverridePreset
	if err := r.db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	presets := make([]override.Preset, 0, len(records))
	for _, rec := range records {
		p, err := modelToPreset(rec)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// GetPreset returns one preset of a user
func (r *PresetRepository) GetPreset(ctx context.Context, telegramID int64, id uuid.UUID) (override.Preset, error) {
	var record database.OverridePreset
	err := r.db.WithContext(ctx).
		Where("telegram_id = ? AND preset_id = ?", telegramID, id.String()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return override.Preset{}, apperrors.ErrPresetNotFound
	}
	if err != nil {
		return override.Preset{}, apperrors.NewDatabaseError(err)
	}
	return modelToPreset(record)
}

// DeletePreset removes a preset of a user
func (r *PresetRepository) DeletePreset(ctx context.Context, telegramID int64, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("telegram_id = ? AND preset_id = ?", telegramID, id.String()).
		Delete(&database.OverridePreset{})
	if result.Error != nil {
		return apperrors.NewDatabaseError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrPresetNotFound
	}
	return nil
}

func presetToModel(telegramID int64, p override.Preset) database.OverridePreset {
	record := database.OverridePreset{
		TelegramID: telegramID,
		PresetID:   p.ID.String(),
		Symbol:     p.Symbol,
		Name:       p.Name,
	}
	if k, ok := p.Settings.InsulinNeedsScaleFactor(); ok {
		record.ScaleFactor = &k
	}
	if r, ok := p.Settings.TargetRange(); ok {
		record.TargetMin = &r.MinValue
		record.TargetMax = &r.MaxValue
	}
	if d, ok := p.Duration.Interval(); ok {
		record.DurationMinutes = int(d / time.Minute)
	}
	return record
}

func modelToPreset(record database.OverridePreset) (override.Preset, error) {
	id, err := uuid.Parse(record.PresetID)
	if err != nil {
		return override.Preset{}, apperrors.NewDecodingError("preset_id", fmt.Sprintf("invalid preset id %q", record.PresetID))
	}

	var target *schedule.DoubleRange
	if record.TargetMin != nil && record.TargetMax != nil {
		target = &schedule.DoubleRange{MinValue: *record.TargetMin, MaxValue: *record.TargetMax}
	}
	settings, err := override.NewSettings(target, record.ScaleFactor)
	if err != nil {
		return override.Preset{}, err
	}

	duration := override.Indefinite
	if record.DurationMinutes > 0 {
		if duration, err = override.Finite(time.Duration(record.DurationMinutes) * time.Minute); err != nil {
			return override.Preset{}, err
		}
	}

	return override.Preset{
		ID:       id,
		Symbol:   record.Symbol,
		Name:     record.Name,
		Settings: settings,
		Duration: duration,
	}, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormHistoryRepository keeps history snapshots in the override_histories table
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new gorm-backed history repository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// SaveHistory upserts the snapshot for a user. Snapshots that arrive after a
// newer one are dropped.
func (r *GormHistoryRepository) SaveHistory(ctx context.Context, telegramID int64, raw rawvalue.Map) error {
	payload, counter, err := encodePayload(raw)
	if err != nil {
		return err
	}

	record := database.OverrideHistory{
		TelegramID:          telegramID,
		ModificationCounter: counter,
		Payload:             payload,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"modification_counter", "payload", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "excluded.modification_counter >= override_histories.modification_counter"},
			}},
		}).
		Create(&record).Error
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("telegram_id", telegramID)
	}
	return nil
}

// LoadHistory returns the stored snapshot for a user
func (r *GormHistoryRepository) LoadHistory(ctx context.Context, telegramID int64) (rawvalue.Map, error) {
	var record database.OverrideHistory
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrHistoryNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("telegram_id", telegramID)
	}
	return decodePayload(record.Payload)
}

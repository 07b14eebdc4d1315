package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

// SQLiteHistoryRepository handles history snapshots using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLiteHistoryRepository. The
// schema comes from database.OpenSQLite.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// SaveHistory upserts the snapshot for a user. A snapshot older than the
// stored one, by modification counter, is ignored.
func (r *SQLiteHistoryRepository) SaveHistory(ctx context.Context, telegramID int64, raw rawvalue.Map) error {
	payload, counter, err := encodePayload(raw)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO override_histories (user_id, modification_counter, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			modification_counter = excluded.modification_counter,
			payload = excluded.payload,
			updated_at = excluded.updated_at
		WHERE excluded.modification_counter >= override_histories.modification_counter`,
		telegramID, counter, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("telegram_id", telegramID)
	}
	return nil
}

// LoadHistory returns the stored snapshot for a user.
func (r *SQLiteHistoryRepository) LoadHistory(ctx context.Context, telegramID int64) (rawvalue.Map, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM override_histories WHERE user_id = ?`, telegramID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrHistoryNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("telegram_id", telegramID)
	}
	return decodePayload(payload)
}

// Users lists every user with a stored history, in ID order.
func (r *SQLiteHistoryRepository) Users(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM override_histories ORDER BY user_id`)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

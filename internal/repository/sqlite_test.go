package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/repository"
)

var day = time.Date(2024, time.May, 14, 0, 0, 0, 0, time.UTC)

func setupSQLiteRepo(t *testing.T) *repository.SQLiteHistoryRepository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "store", "overrides.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteHistoryRepository(db)
}

func recordedHistory(t *testing.T) *history.History {
	t.Helper()
	k := 0.6
	settings, err := override.NewSettings(nil, &k)
	require.NoError(t, err)
	d, err := override.Finite(2 * time.Hour)
	require.NoError(t, err)
	o, err := override.New(override.CustomContext, settings, day.Add(8*time.Hour), d, override.RemoteTrigger("phone"), uuid.New())
	require.NoError(t, err)

	h := history.New()
	h.RecordOverride(&o, day.Add(8*time.Hour))
	h.CancelActiveOverride(day.Add(9 * time.Hour))
	return h
}

func TestSQLiteHistoryRepository_SaveAndLoad(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	h := recordedHistory(t)

	require.NoError(t, repo.SaveHistory(ctx, 42, h.RawValue()))

	raw, err := repo.LoadHistory(ctx, 42)
	require.NoError(t, err)
	restored, err := history.FromRawValue(raw)
	require.NoError(t, err)

	assert.Equal(t, h.ModificationCounter(), restored.ModificationCounter())
	require.Len(t, restored.Events(), 1)
	assert.True(t, h.Events()[0].Override.Equal(restored.Events()[0].Override))
}

func TestSQLiteHistoryRepository_Overwrites(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveHistory(ctx, 7, history.New().RawValue()))
	h := recordedHistory(t)
	require.NoError(t, repo.SaveHistory(ctx, 7, h.RawValue()))

	raw, err := repo.LoadHistory(ctx, 7)
	require.NoError(t, err)
	restored, err := history.FromRawValue(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored.ModificationCounter())

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, users)
}

func TestSQLiteHistoryRepository_IgnoresOlderSnapshot(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	newer := recordedHistory(t)
	require.Equal(t, int64(2), newer.ModificationCounter())
	older := newer.RawValue()
	older["modificationCounter"] = int64(1)

	require.NoError(t, repo.SaveHistory(ctx, 9, newer.RawValue()))
	require.NoError(t, repo.SaveHistory(ctx, 9, older))

	raw, err := repo.LoadHistory(ctx, 9)
	require.NoError(t, err)
	restored, err := history.FromRawValue(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored.ModificationCounter())

	// a snapshot at the same counter still lands, e.g. one carrying a tainted log
	same := newer.RawValue()
	same["recentEvents"] = []any{}
	require.NoError(t, repo.SaveHistory(ctx, 9, same))
	raw, err = repo.LoadHistory(ctx, 9)
	require.NoError(t, err)
	restored, err = history.FromRawValue(raw)
	require.NoError(t, err)
	assert.Empty(t, restored.Events())
}

func TestSQLiteHistoryRepository_NotFound(t *testing.T) {
	repo := setupSQLiteRepo(t)

	_, err := repo.LoadHistory(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrHistoryNotFound)
}

func TestSQLiteHistoryRepository_RejectsSnapshotWithoutCounter(t *testing.T) {
	repo := setupSQLiteRepo(t)

	err := repo.SaveHistory(context.Background(), 1, map[string]any{"recentEvents": []any{}})
	assert.True(t, apperrors.IsDecoding(err))
}

package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
	"github.com/vladimiradmaev/therapy-overrides/internal/services"
)

func TestParseScheduleEntries(t *testing.T) {
	entries, err := services.ParseScheduleEntries(database.ScheduleBasal, "12:00=1.2, 00:00=0.8,6:30=1")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "00:00", entries[0].StartTime)
	assert.Equal(t, 0.8, entries[0].Value)
	assert.Equal(t, "06:30", entries[1].StartTime)
	assert.Equal(t, "12:00", entries[2].StartTime)
	for _, e := range entries {
		assert.Equal(t, database.ScheduleBasal, e.Kind)
		assert.Zero(t, e.MaxValue)
	}
}

func TestParseScheduleEntries_Target(t *testing.T) {
	entries, err := services.ParseScheduleEntries(database.ScheduleTarget, "00:00=100-110")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 100.0, entries[0].Value)
	assert.Equal(t, 110.0, entries[0].MaxValue)
}

func TestParseScheduleEntries_Invalid(t *testing.T) {
	tests := []struct {
		name, kind, spec string
	}{
		{"unknown kind", "bolus", "00:00=1"},
		{"missing value", database.ScheduleBasal, "00:00"},
		{"bad clock", database.ScheduleBasal, "25:00=1"},
		{"negative", database.ScheduleBasal, "00:00=-1"},
		{"not a number", database.ScheduleCarbRatio, "00:00=ten"},
		{"target without max", database.ScheduleTarget, "00:00=100"},
		{"inverted target", database.ScheduleTarget, "00:00=120-100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.ParseScheduleEntries(tt.kind, tt.spec)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestBuildTherapySchedules(t *testing.T) {
	basal, err := services.ParseScheduleEntries(database.ScheduleBasal, "00:00=0.8,12:00=1.2")
	require.NoError(t, err)
	target, err := services.ParseScheduleEntries(database.ScheduleTarget, "00:00=100-110")
	require.NoError(t, err)

	loc := time.FixedZone("UTC+3", 3*60*60)
	schedules, err := services.BuildTherapySchedules(append(basal, target...), loc)
	require.NoError(t, err)

	require.NotNil(t, schedules.Basal)
	assert.Nil(t, schedules.Sensitivity)
	assert.Nil(t, schedules.CarbRatio)
	require.NotNil(t, schedules.Target)

	// 10:00 UTC is 13:00 local
	noonUTC := time.Date(2024, time.May, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.2, schedules.Basal.ValueAt(noonUTC))
	assert.Equal(t, 0.8, schedules.Basal.ValueAt(noonUTC.Add(-2*time.Hour)))
	assert.Equal(t, schedule.DoubleRange{MinValue: 100, MaxValue: 110}, schedules.Target.ValueAt(noonUTC))
	assert.Equal(t, loc, schedules.Basal.Location())
}

func TestBuildTherapySchedules_Empty(t *testing.T) {
	schedules, err := services.BuildTherapySchedules(nil, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, schedules.Basal)
	assert.Nil(t, schedules.Target)
}

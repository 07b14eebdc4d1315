package schedule_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

func TestMultiply_MergesOffsets(t *testing.T) {
	basal := twoRateBasal(t)
	sensitivity, err := schedule.New([]schedule.Item[float64]{
		{StartOffset: 0, Value: 50},
		{StartOffset: 6 * time.Hour, Value: 40},
	}, time.UTC)
	require.NoError(t, err)

	effect, err := schedule.Multiply(basal, sensitivity)
	require.NoError(t, err)

	assert.Equal(t, []schedule.Item[float64]{
		{StartOffset: 0, Value: 40},
		{StartOffset: 6 * time.Hour, Value: 32},
		{StartOffset: 12 * time.Hour, Value: 48},
	}, effect.Items())
}

func TestDivide(t *testing.T) {
	a := constant(t, 10)
	b := twoRateBasal(t)

	q, err := schedule.Divide(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, q.ValueAt(at(3)), 1e-9)
	assert.InDelta(t, 8.3333333, q.ValueAt(at(15)), 1e-6)
}

func TestCombine_RejectsDifferentZones(t *testing.T) {
	a := constant(t, 1)
	b, err := schedule.New([]schedule.Item[float64]{{StartOffset: 0, Value: 1}}, time.FixedZone("X", 3600))
	require.NoError(t, err)

	_, err = schedule.Multiply(a, b)
	assert.ErrorIs(t, err, schedule.ErrTimeZoneMismatch)
}

func TestRawValue_RoundTripThroughJSON(t *testing.T) {
	zone := time.FixedZone("Pump/Local", 2*3600)
	original, err := schedule.New([]schedule.Item[schedule.DoubleRange]{
		{StartOffset: 0, Value: schedule.DoubleRange{MinValue: 100, MaxValue: 110}},
		{StartOffset: 7*time.Hour + 30*time.Minute, Value: schedule.DoubleRange{MinValue: 90, MaxValue: 100}},
	}, zone)
	require.NoError(t, err)

	data, err := json.Marshal(original.RawValue(schedule.EncodeRange))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	decoded, err := schedule.FromRawValue(raw, schedule.DecodeRange)
	require.NoError(t, err)
	assert.Equal(t, original.Items(), decoded.Items())
	_, offset := time.Now().In(decoded.Location()).Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestFromRawValue_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "missing items", raw: map[string]any{"timeZone": "UTC"}},
		{name: "items not a list", raw: map[string]any{"items": "x", "timeZone": "UTC"}},
		{name: "missing start", raw: map[string]any{"items": []any{map[string]any{"value": 1.0}}, "timeZone": "UTC"}},
		{name: "wrong value type", raw: map[string]any{"items": []any{map[string]any{"startTime": 0.0, "value": "x"}}, "timeZone": "UTC"}},
		{name: "empty items", raw: map[string]any{"items": []any{}, "timeZone": "UTC"}},
		{name: "missing zone", raw: map[string]any{"items": []any{map[string]any{"startTime": 0.0, "value": 1.0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schedule.FromRawValue(tt.raw, schedule.DecodeFloat)
			require.Error(t, err)
			assert.True(t, apperrors.IsDecoding(err), "got %v", err)
		})
	}
}

func TestNewDoubleRange(t *testing.T) {
	r, err := schedule.NewDoubleRange(80, 120)
	require.NoError(t, err)
	assert.True(t, r.Contains(100))
	assert.Equal(t, 100.0, r.Average())

	_, err = schedule.NewDoubleRange(120, 80)
	assert.ErrorIs(t, err, schedule.ErrInvalidRange)
}

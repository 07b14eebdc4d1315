package override_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

func flat(t *testing.T, v float64) *schedule.Schedule[float64] {
	t.Helper()
	s, err := schedule.New([]schedule.Item[float64]{{StartOffset: 0, Value: v}}, time.UTC)
	require.NoError(t, err)
	return s
}

func TestApplyToBasal_MorningOverride(t *testing.T) {
	o := newOverride(t, 0.5, at(8), 2*time.Hour)

	resolved := override.ApplyToBasal(o, flat(t, 1.0), at(9))

	assert.Equal(t, 1.0, resolved.ValueAt(at(7.5)))
	assert.Equal(t, 0.5, resolved.ValueAt(at(8)))
	assert.Equal(t, 0.5, resolved.ValueAt(at(9.5)))
	assert.Equal(t, 1.0, resolved.ValueAt(at(10)))
}

func TestApplyToSensitivityAndCarbRatioUseReciprocal(t *testing.T) {
	o := newOverride(t, 2, at(8), 2*time.Hour)

	isf := override.ApplyToSensitivity(o, flat(t, 50), at(9))
	cr := override.ApplyToCarbRatio(o, flat(t, 10), at(9))

	assert.Equal(t, 25.0, isf.ValueAt(at(9)))
	assert.Equal(t, 50.0, isf.ValueAt(at(11)))
	assert.Equal(t, 5.0, cr.ValueAt(at(9)))
	assert.Equal(t, 10.0, cr.ValueAt(at(11)))
}

func TestApplyToTargetRange(t *testing.T) {
	target := schedule.DoubleRange{MinValue: 140, MaxValue: 160}
	settings, err := override.NewSettings(&target, nil)
	require.NoError(t, err)
	o, err := override.New(override.PreMealContext, settings, at(8), finite(t, time.Hour), override.LocalTrigger, [16]byte{1})
	require.NoError(t, err)

	base, err := schedule.New([]schedule.Item[schedule.DoubleRange]{{StartOffset: 0, Value: schedule.DoubleRange{MinValue: 100, MaxValue: 110}}}, time.UTC)
	require.NoError(t, err)

	resolved := override.ApplyToTargetRange(o, base, at(8))
	assert.Equal(t, target, resolved.ValueAt(at(8.5)))
	assert.Equal(t, schedule.DoubleRange{MinValue: 100, MaxValue: 110}, resolved.ValueAt(at(9)))

	// no scale factor, so insulin schedules are untouched
	basal := flat(t, 1)
	assert.Same(t, basal, override.ApplyToBasal(o, basal, at(8)))
}

func TestApply_NoOps(t *testing.T) {
	base := flat(t, 1.0)

	t.Run("deleted", func(t *testing.T) {
		o := newOverride(t, 0.5, at(8), 2*time.Hour).WithActualEnd(override.DeletedEnd)
		assert.Same(t, base, override.ApplyToBasal(o, base, at(9)))
	})

	t.Run("outside the relevance window", func(t *testing.T) {
		o := newOverride(t, 0.5, at(8), 2*time.Hour)
		assert.Same(t, base, override.ApplyToBasal(o, base, at(9+48)))
		assert.Same(t, base, override.ApplyToBasal(o, base, at(10+24)))
	})

	t.Run("unit scale factor", func(t *testing.T) {
		o := newOverride(t, 1.0, at(8), 2*time.Hour)
		assert.Same(t, base, override.ApplyToBasal(o, base, at(9)))
	})
}

func TestApply_IndefiniteCoversWholeDay(t *testing.T) {
	o, err := override.New(override.CustomContext, scaled(t, 2), at(-30), override.Indefinite, override.LocalTrigger, [16]byte{2})
	require.NoError(t, err)
	base, err := schedule.New([]schedule.Item[float64]{
		{StartOffset: 0, Value: 0.8},
		{StartOffset: 12 * time.Hour, Value: 1.2},
	}, time.UTC)
	require.NoError(t, err)

	resolved := override.ApplyToBasal(o, base, at(12))

	require.Len(t, resolved.Items(), 2)
	assert.Equal(t, 1.6, resolved.ValueAt(at(3)))
	assert.Equal(t, 2.4, resolved.ValueAt(at(15)))
}

func TestApply_EarlyEndLimitsEffect(t *testing.T) {
	o := newOverride(t, 0.5, at(8), 4*time.Hour).WithActualEnd(override.EarlyEnd(at(9)))

	resolved := override.ApplyToBasal(o, flat(t, 1.0), at(9))

	assert.Equal(t, 0.5, resolved.ValueAt(at(8.5)))
	assert.Equal(t, 1.0, resolved.ValueAt(at(9)))
	assert.Equal(t, 1.0, resolved.ValueAt(at(11)))
}

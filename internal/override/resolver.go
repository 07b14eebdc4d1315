package override

import (
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

// Apply splices o into base. Only the part of the override within one
// repeat period either side of ref is considered; anything further away
// cannot change the shape of a daily repeating schedule.
func Apply[T any](o Override, base *schedule.Schedule[T], ref time.Time, update func(T) T) *schedule.Schedule[T] {
	if o.IsDeleted() {
		return base
	}
	start, end := o.ActiveInterval()

	windowStart := ref.Add(-schedule.RepeatPeriod)
	windowEnd := ref.Add(schedule.RepeatPeriod)
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	if !end.After(start) {
		return base
	}

	return base.ApplyingOverride(start, end, update)
}

// ApplyToBasal scales basal rates by the override's basal multiplier.
func ApplyToBasal(o Override, base *schedule.Schedule[float64], ref time.Time) *schedule.Schedule[float64] {
	k, ok := o.settings.BasalRateMultiplier()
	if !ok {
		return base
	}
	return Apply(o, base, ref, func(v float64) float64 { return v * k })
}

// ApplyToSensitivity scales insulin sensitivity by the reciprocal factor.
func ApplyToSensitivity(o Override, base *schedule.Schedule[float64], ref time.Time) *schedule.Schedule[float64] {
	k, ok := o.settings.InsulinSensitivityMultiplier()
	if !ok {
		return base
	}
	return Apply(o, base, ref, func(v float64) float64 { return v * k })
}

// ApplyToCarbRatio scales carb ratios by the reciprocal factor.
func ApplyToCarbRatio(o Override, base *schedule.Schedule[float64], ref time.Time) *schedule.Schedule[float64] {
	k, ok := o.settings.CarbRatioMultiplier()
	if !ok {
		return base
	}
	return Apply(o, base, ref, func(v float64) float64 { return v * k })
}

// ApplyToTargetRange replaces the glucose target during the override.
func ApplyToTargetRange(o Override, base *schedule.Schedule[schedule.DoubleRange], ref time.Time) *schedule.Schedule[schedule.DoubleRange] {
	target, ok := o.settings.TargetRange()
	if !ok {
		return base
	}
	return Apply(o, base, ref, func(schedule.DoubleRange) schedule.DoubleRange { return target })
}

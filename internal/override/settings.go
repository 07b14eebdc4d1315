package override

import (
	"math"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

var (
	ErrInvalidScaleFactor = apperrors.New(apperrors.ErrorTypeValidation, "INVALID_SCALE_FACTOR", "insulin needs scale factor must be a positive finite number")
	ErrInvalidTargetRange = apperrors.New(apperrors.ErrorTypeValidation, "INVALID_TARGET_RANGE", "target range must be positive with min <= max")
)

// Settings describes what an override changes. Target ranges are in mg/dL.
// A scale factor of exactly 1 is stored as absent, since it changes nothing.
type Settings struct {
	targetRange    schedule.DoubleRange
	hasTargetRange bool
	scaleFactor    float64
}

// NewSettings validates and normalizes override settings. Either argument
// may be nil.
func NewSettings(targetRange *schedule.DoubleRange, insulinNeedsScaleFactor *float64) (Settings, error) {
	var s Settings
	if targetRange != nil {
		if targetRange.MinValue <= 0 || targetRange.MinValue > targetRange.MaxValue {
			return Settings{}, ErrInvalidTargetRange.WithContext("range", targetRange.String())
		}
		s.targetRange = *targetRange
		s.hasTargetRange = true
	}
	if insulinNeedsScaleFactor != nil {
		k := *insulinNeedsScaleFactor
		if k <= 0 || math.IsInf(k, 0) || math.IsNaN(k) {
			return Settings{}, ErrInvalidScaleFactor.WithContext("scale_factor", k)
		}
		if k != 1 {
			s.scaleFactor = k
		}
	}
	return s, nil
}

// TargetRange returns the replacement glucose target, if any.
func (s Settings) TargetRange() (schedule.DoubleRange, bool) {
	return s.targetRange, s.hasTargetRange
}

// InsulinNeedsScaleFactor returns the configured factor, if any.
func (s Settings) InsulinNeedsScaleFactor() (float64, bool) {
	return s.scaleFactor, s.scaleFactor != 0
}

// EffectiveInsulinNeedsScaleFactor is the factor, or 1 when none is set.
func (s Settings) EffectiveInsulinNeedsScaleFactor() float64 {
	if s.scaleFactor == 0 {
		return 1
	}
	return s.scaleFactor
}

func (s Settings) BasalRateMultiplier() (float64, bool) {
	return s.InsulinNeedsScaleFactor()
}

func (s Settings) InsulinSensitivityMultiplier() (float64, bool) {
	if k, ok := s.InsulinNeedsScaleFactor(); ok {
		return 1 / k, true
	}
	return 0, false
}

func (s Settings) CarbRatioMultiplier() (float64, bool) {
	return s.InsulinSensitivityMultiplier()
}

// IsValid reports whether the settings change anything at all.
func (s Settings) IsValid() bool {
	return s.hasTargetRange || s.scaleFactor != 0
}

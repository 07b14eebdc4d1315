package schedule

import (
	"fmt"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
)

var ErrInvalidRange = apperrors.New(apperrors.ErrorTypeValidation, "INVALID_RANGE", "range minimum exceeds maximum")

// DoubleRange is a closed numeric interval, used for glucose targets in mg/dL.
type DoubleRange struct {
	MinValue float64
	MaxValue float64
}

// NewDoubleRange validates min <= max.
func NewDoubleRange(minValue, maxValue float64) (DoubleRange, error) {
	if minValue > maxValue {
		return DoubleRange{}, ErrInvalidRange.WithContext("min", minValue).WithContext("max", maxValue)
	}
	return DoubleRange{MinValue: minValue, MaxValue: maxValue}, nil
}

// Contains reports whether v lies inside the range.
func (r DoubleRange) Contains(v float64) bool {
	return r.MinValue <= v && v <= r.MaxValue
}

// Average is the midpoint of the range.
func (r DoubleRange) Average() float64 {
	return (r.MinValue + r.MaxValue) / 2
}

func (r DoubleRange) String() string {
	return fmt.Sprintf("%g-%g", r.MinValue, r.MaxValue)
}

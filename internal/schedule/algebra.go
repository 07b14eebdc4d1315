package schedule

import (
	"sort"
	"time"
)

// Combine merges two schedules pointwise. The result has an item at every
// offset where either input changes value.
func Combine[A, B, C any](a *Schedule[A], b *Schedule[B], combine func(A, B) C) (*Schedule[C], error) {
	if a.location.String() != b.location.String() {
		return nil, ErrTimeZoneMismatch.WithContext("left", a.location.String()).WithContext("right", b.location.String())
	}

	// Offsets from b are normalized into a's cycle so both share one timeline.
	offsets := make(map[time.Duration]struct{}, len(a.items)+len(b.items))
	for _, item := range a.items {
		offsets[item.StartOffset] = struct{}{}
	}
	ref := a.ReferenceOffset()
	for _, item := range b.items {
		offset := item.StartOffset
		for offset < ref {
			offset += RepeatPeriod
		}
		for offset >= ref+RepeatPeriod {
			offset -= RepeatPeriod
		}
		offsets[offset] = struct{}{}
	}

	merged := make([]time.Duration, 0, len(offsets))
	for offset := range offsets {
		merged = append(merged, offset)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	items := make([]Item[C], 0, len(merged))
	for _, offset := range merged {
		items = append(items, Item[C]{
			StartOffset: offset,
			Value:       combine(a.valueAtOffset(offset), b.valueAtOffset(offset)),
		})
	}
	return New(items, a.location)
}

// Multiply combines two numeric schedules by multiplication, for example
// basal rate × insulin sensitivity as a glucose effect per hour.
func Multiply(a, b *Schedule[float64]) (*Schedule[float64], error) {
	return Combine(a, b, func(x, y float64) float64 { return x * y })
}

// Divide combines two numeric schedules by division.
func Divide(a, b *Schedule[float64]) (*Schedule[float64], error) {
	return Combine(a, b, func(x, y float64) float64 { return x / y })
}

// valueAtOffset looks up the value in effect at an offset of the repeating
// day, wrapping offsets that fall outside this schedule's cycle.
func (s *Schedule[T]) valueAtOffset(offset time.Duration) T {
	ref := s.ReferenceOffset()
	for offset < ref {
		offset += RepeatPeriod
	}
	for offset >= ref+RepeatPeriod {
		offset -= RepeatPeriod
	}
	value := s.items[0].Value
	for _, item := range s.items {
		if item.StartOffset > offset {
			break
		}
		value = item.Value
	}
	return value
}

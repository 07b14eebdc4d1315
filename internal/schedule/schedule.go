// Package schedule models therapy settings that repeat every day: basal
// rates, insulin sensitivity, carb ratios and glucose target ranges, each a
// table of values keyed by time of day.
package schedule

import (
	"fmt"
	"sort"
	"time"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
)

// RepeatPeriod is the length of one schedule cycle.
const RepeatPeriod = 24 * time.Hour

var (
	ErrEmptySchedule    = apperrors.New(apperrors.ErrorTypeValidation, "EMPTY_SCHEDULE", "schedule needs at least one item")
	ErrDuplicateOffset  = apperrors.New(apperrors.ErrorTypeValidation, "DUPLICATE_OFFSET", "schedule items must have distinct start offsets")
	ErrOffsetOutOfRange = apperrors.New(apperrors.ErrorTypeValidation, "OFFSET_OUT_OF_RANGE", "schedule item offsets must lie within one repeat period")
	ErrTimeZoneMismatch = apperrors.New(apperrors.ErrorTypeValidation, "TIME_ZONE_MISMATCH", "schedules use different time zones")
)

// Item is one row of a schedule: the value in effect from StartOffset
// (time since local midnight) until the next item's offset.
type Item[T any] struct {
	StartOffset time.Duration
	Value       T
}

// AbsoluteValue is a schedule item projected onto real instants.
type AbsoluteValue[T any] struct {
	Start time.Time
	End   time.Time
	Value T
}

// Schedule is an immutable daily repeating table of values. The zero value
// is not usable; build one with New.
type Schedule[T any] struct {
	items    []Item[T]
	location *time.Location
}

// New validates and sorts items. A nil location means UTC.
func New[T any](items []Item[T], location *time.Location) (*Schedule[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptySchedule
	}
	if location == nil {
		location = time.UTC
	}

	sorted := make([]Item[T], len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})

	first := sorted[0].StartOffset
	for i, item := range sorted {
		if item.StartOffset < 0 || item.StartOffset-first >= RepeatPeriod {
			return nil, ErrOffsetOutOfRange.WithContext("offset", item.StartOffset.String())
		}
		if i > 0 && sorted[i-1].StartOffset == item.StartOffset {
			return nil, ErrDuplicateOffset.WithContext("offset", item.StartOffset.String())
		}
	}

	return &Schedule[T]{items: sorted, location: location}, nil
}

// MustNew is New for literals known to be valid; it panics otherwise.
func MustNew[T any](items []Item[T], location *time.Location) *Schedule[T] {
	s, err := New(items, location)
	if err != nil {
		panic(fmt.Sprintf("schedule.MustNew: %v", err))
	}
	return s
}

// Items returns a copy of the schedule's rows in offset order.
func (s *Schedule[T]) Items() []Item[T] {
	out := make([]Item[T], len(s.items))
	copy(out, s.items)
	return out
}

// Location is the time zone the schedule's offsets are measured in.
func (s *Schedule[T]) Location() *time.Location {
	return s.location
}

// ReferenceOffset is the offset of the first item.
func (s *Schedule[T]) ReferenceOffset() time.Duration {
	return s.items[0].StartOffset
}

func (s *Schedule[T]) maxOffset() time.Duration {
	return s.ReferenceOffset() + RepeatPeriod
}

// ScheduleOffset maps an instant onto the schedule's single repeating day,
// returning a value in [ReferenceOffset, ReferenceOffset+RepeatPeriod). The
// zone offset in effect at t is honored, so daylight saving shifts apply.
func (s *Schedule[T]) ScheduleOffset(t time.Time) time.Duration {
	_, zoneOffset := t.In(s.location).Zone()
	local := time.Duration(t.UnixNano()) + time.Duration(zoneOffset)*time.Second

	ref := s.ReferenceOffset()
	rem := (local - ref) % RepeatPeriod
	if rem < 0 {
		rem += RepeatPeriod
	}
	return rem + ref
}

// ValueAt returns the value of the last item starting at or before t's
// schedule offset.
func (s *Schedule[T]) ValueAt(t time.Time) T {
	return s.valueAtOffset(s.ScheduleOffset(t))
}

// Between returns one absolute segment per item intersecting [start, end).
// Ranges longer than what remains of the current cycle are split at the
// cycle boundary. A range with start after end yields nothing; a zero-length
// range yields the segment containing start.
func (s *Schedule[T]) Between(start, end time.Time) []AbsoluteValue[T] {
	if start.After(end) {
		return nil
	}

	startOffset := s.ScheduleOffset(start)
	endOffset := startOffset + end.Sub(start)
	maxOffset := s.maxOffset()

	if endOffset > maxOffset {
		boundary := start.Add(maxOffset - startOffset)
		return append(s.Between(start, boundary), s.Between(boundary, end)...)
	}

	startIndex := 0
	for i, item := range s.items {
		if item.StartOffset <= startOffset {
			startIndex = i
		}
	}
	endIndex := len(s.items)
	for i := startIndex + 1; i < len(s.items); i++ {
		if s.items[i].StartOffset >= endOffset {
			endIndex = i
			break
		}
	}

	referenceDate := start.Add(-startOffset)
	values := make([]AbsoluteValue[T], 0, endIndex-startIndex)
	for i := startIndex; i < endIndex; i++ {
		itemEnd := maxOffset
		if i+1 < len(s.items) {
			itemEnd = s.items[i+1].StartOffset
		}
		values = append(values, AbsoluteValue[T]{
			Start: referenceDate.Add(s.items[i].StartOffset),
			End:   referenceDate.Add(itemEnd),
			Value: s.items[i].Value,
		})
	}
	return values
}

// Map returns a schedule with the same offsets and transformed values.
func Map[T, U any](s *Schedule[T], transform func(T) U) *Schedule[U] {
	items := make([]Item[U], len(s.items))
	for i, item := range s.items {
		items[i] = Item[U]{StartOffset: item.StartOffset, Value: transform(item.Value)}
	}
	return &Schedule[U]{items: items, location: s.location}
}

package schedule

import "time"

// ApplyingOverride returns a schedule whose values inside [start, end) are
// replaced by update(value). The interval is projected onto the repeating
// day, so callers must clamp it to the cycle they care about first. Items
// are split exactly at the projected boundaries.
func (s *Schedule[T]) ApplyingOverride(start, end time.Time, update func(T) T) *Schedule[T] {
	if !end.After(start) {
		return s
	}

	overrideStart := s.ScheduleOffset(start)
	overrideEnd := s.ScheduleOffset(end)
	if overrideStart == overrideEnd || end.Sub(start) >= RepeatPeriod {
		return Map(s, update)
	}

	crossesMidnight := overrideStart > overrideEnd
	padded := s.paddedToClosedInterval()

	items := make([]Item[T], 0, len(s.items)+2)
	for i := 0; i+1 < len(padded); i++ {
		item, next := padded[i], padded[i+1]
		contains := func(offset time.Duration) bool {
			return item.StartOffset <= offset && offset < next.StartOffset
		}
		updated := Item[T]{StartOffset: item.StartOffset, Value: update(item.Value)}
		startEntry := Item[T]{StartOffset: overrideStart, Value: update(item.Value)}
		endEntry := Item[T]{StartOffset: overrideEnd, Value: item.Value}

		startsHere, endsHere := contains(overrideStart), contains(overrideEnd)
		switch {
		case !startsHere && !endsHere:
			var inside bool
			if crossesMidnight {
				inside = item.StartOffset >= overrideStart || item.StartOffset < overrideEnd
			} else {
				inside = overrideStart <= item.StartOffset && item.StartOffset < overrideEnd
			}
			if inside {
				items = append(items, updated)
			} else {
				items = append(items, item)
			}

		case startsHere && !endsHere:
			if item.StartOffset == overrideStart {
				items = append(items, startEntry)
			} else {
				items = append(items, item, startEntry)
			}

		case !startsHere && endsHere:
			if item.StartOffset == overrideEnd {
				items = append(items, endEntry)
			} else {
				items = append(items, updated, endEntry)
			}

		case crossesMidnight:
			// [item, end) is the tail of the previous cycle's override,
			// [end, start) is untouched, [start, next) begins this cycle's.
			if item.StartOffset == overrideEnd {
				items = append(items, endEntry, startEntry)
			} else {
				items = append(items, updated, endEntry, startEntry)
			}

		default:
			if item.StartOffset == overrideStart {
				items = append(items, startEntry, endEntry)
			} else {
				items = append(items, item, startEntry, endEntry)
			}
		}
	}

	return MustNew(items, s.location)
}

// paddedToClosedInterval appends a sentinel at the end of the cycle carrying
// the last value, so every real item has a successor.
func (s *Schedule[T]) paddedToClosedInterval() []Item[T] {
	padded := make([]Item[T], 0, len(s.items)+1)
	padded = append(padded, s.items...)
	return append(padded, Item[T]{StartOffset: s.maxOffset(), Value: s.items[len(s.items)-1].Value})
}

package history

import (
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

func (e Event) RawValue() rawvalue.Map {
	return rawvalue.Map{
		"override":            e.Override.RawValue(),
		"modificationCounter": e.ModificationCounter,
	}
}

func EventFromRawValue(raw rawvalue.Map) (Event, error) {
	rawOverride, err := rawvalue.Nested(raw, "override")
	if err != nil {
		return Event{}, err
	}
	o, err := override.FromRawValue(rawOverride)
	if err != nil {
		return Event{}, err
	}
	counter, err := rawvalue.Int64(raw, "modificationCounter")
	if err != nil {
		return Event{}, err
	}
	return Event{Override: o, ModificationCounter: counter}, nil
}

func (a QueryAnchor) RawValue() rawvalue.Map {
	return rawvalue.Map{"modificationCounter": a.ModificationCounter}
}

func QueryAnchorFromRawValue(raw rawvalue.Map) (QueryAnchor, error) {
	counter, err := rawvalue.Int64(raw, "modificationCounter")
	if err != nil {
		return QueryAnchor{}, err
	}
	return QueryAnchor{ModificationCounter: counter}, nil
}

// RawValue snapshots the log, its counter and any tainted log.
func (h *History) RawValue() rawvalue.Map {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw := rawvalue.Map{
		"recentEvents":        encodeEvents(h.recentEvents),
		"modificationCounter": h.modificationCounter,
	}
	if len(h.taintedEventLog) > 0 {
		raw["taintedEventLog"] = encodeEvents(h.taintedEventLog)
	}
	return raw
}

// FromRawValue restores a log written by RawValue. Options apply as in New.
func FromRawValue(raw rawvalue.Map, opts ...Option) (*History, error) {
	events, err := decodeEvents(raw, "recentEvents")
	if err != nil {
		return nil, err
	}
	counter, err := rawvalue.Int64(raw, "modificationCounter")
	if err != nil {
		return nil, err
	}
	var tainted []Event
	if rawvalue.Has(raw, "taintedEventLog") {
		if tainted, err = decodeEvents(raw, "taintedEventLog"); err != nil {
			return nil, err
		}
	}

	h := New(opts...)
	h.recentEvents = events
	h.taintedEventLog = tainted
	h.modificationCounter = counter
	return h, nil
}

func encodeEvents(events []Event) []rawvalue.Map {
	out := make([]rawvalue.Map, 0, len(events))
	for _, e := range events {
		out = append(out, e.RawValue())
	}
	return out
}

func decodeEvents(raw rawvalue.Map, key string) ([]Event, error) {
	items, err := rawvalue.List(raw, key)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(items))
	for _, item := range items {
		e, err := EventFromRawValue(item)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

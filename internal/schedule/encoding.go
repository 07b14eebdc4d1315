package schedule

import (
	"fmt"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

// RawValue encodes the schedule as a primitive map. Offsets are seconds.
func (s *Schedule[T]) RawValue(encode func(T) any) rawvalue.Map {
	items := make([]any, len(s.items))
	for i, item := range s.items {
		items[i] = rawvalue.Map{
			"startTime": item.StartOffset.Seconds(),
			"value":     encode(item.Value),
		}
	}
	_, secondsFromGMT := time.Now().In(s.location).Zone()
	return rawvalue.Map{
		"items":          items,
		"timeZone":       s.location.String(),
		"secondsFromGMT": secondsFromGMT,
	}
}

// FromRawValue decodes a schedule written by RawValue.
func FromRawValue[T any](raw rawvalue.Map, decode func(any) (T, error)) (*Schedule[T], error) {
	rawItems, err := rawvalue.List(raw, "items")
	if err != nil {
		return nil, err
	}

	items := make([]Item[T], 0, len(rawItems))
	for i, rawItem := range rawItems {
		secs, err := rawvalue.Float(rawItem, "startTime")
		if err != nil {
			return nil, err
		}
		v, ok := rawItem["value"]
		if !ok {
			return nil, rawvalue.Invalid(fmt.Sprintf("items[%d].value", i), fmt.Errorf("missing"))
		}
		value, err := decode(v)
		if err != nil {
			return nil, rawvalue.Invalid(fmt.Sprintf("items[%d].value", i), err)
		}
		items = append(items, Item[T]{
			StartOffset: time.Duration(secs * float64(time.Second)),
			Value:       value,
		})
	}

	location, err := decodeLocation(raw)
	if err != nil {
		return nil, err
	}

	s, err := New(items, location)
	if err != nil {
		return nil, rawvalue.Invalid("items", err)
	}
	return s, nil
}

func decodeLocation(raw rawvalue.Map) (*time.Location, error) {
	name, err := rawvalue.String(raw, "timeZone")
	if err != nil {
		return nil, err
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}
	secs, err := rawvalue.Int64(raw, "secondsFromGMT")
	if err != nil {
		return nil, err
	}
	return time.FixedZone(name, int(secs)), nil
}

// EncodeFloat and DecodeFloat are the value codec for numeric schedules.
func EncodeFloat(v float64) any { return v }

func DecodeFloat(v any) (float64, error) {
	f, ok := rawvalue.ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return f, nil
}

// EncodeRange and DecodeRange are the value codec for target range schedules.
func EncodeRange(r DoubleRange) any {
	return r.RawValue()
}

func DecodeRange(v any) (DoubleRange, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return DoubleRange{}, fmt.Errorf("expected map, got %T", v)
	}
	return DoubleRangeFromRawValue(m)
}

// RawValue encodes the range as a primitive map.
func (r DoubleRange) RawValue() rawvalue.Map {
	return rawvalue.Map{"minValue": r.MinValue, "maxValue": r.MaxValue}
}

// DoubleRangeFromRawValue decodes a range written by RawValue.
func DoubleRangeFromRawValue(raw rawvalue.Map) (DoubleRange, error) {
	minValue, err := rawvalue.Float(raw, "minValue")
	if err != nil {
		return DoubleRange{}, err
	}
	maxValue, err := rawvalue.Float(raw, "maxValue")
	if err != nil {
		return DoubleRange{}, err
	}
	r, err := NewDoubleRange(minValue, maxValue)
	if err != nil {
		return DoubleRange{}, rawvalue.Invalid("maxValue", err)
	}
	return r, nil
}

// Package rawvalue reads the primitive-map encoding shared by schedules,
// overrides and override history. Values may come straight from RawValue
// methods or from a JSON round trip, so numbers are accepted as any Go
// numeric type or json.Number.
package rawvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
)

// Map is the primitive-map shape every persisted type encodes to.
type Map = map[string]any

// Has reports whether key is present and non-nil.
func Has(raw Map, key string) bool {
	v, ok := raw[key]
	return ok && v != nil
}

// Float reads a required number.
func Float(raw Map, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, missing(key)
	}
	f, ok := ToFloat(v)
	if !ok {
		return 0, mistyped(key, "number", v)
	}
	return f, nil
}

// Int64 reads a required integral number.
func Int64(raw Map, key string) (int64, error) {
	f, err := Float(raw, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, mistyped(key, "integer", raw[key])
	}
	return int64(f), nil
}

// String reads a required string.
func String(raw Map, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", mistyped(key, "string", v)
	}
	return s, nil
}

// Bool reads a required boolean.
func Bool(raw Map, key string) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return false, missing(key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, mistyped(key, "bool", v)
	}
	return b, nil
}

// Nested reads a required nested map.
func Nested(raw Map, key string) (Map, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, missing(key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mistyped(key, "map", v)
	}
	return m, nil
}

// List reads a required list of nested maps.
func List(raw Map, key string) ([]Map, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, missing(key)
	}
	switch items := v.(type) {
	case []map[string]any:
		return items, nil
	case []any:
		out := make([]Map, 0, len(items))
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, mistyped(fmt.Sprintf("%s[%d]", key, i), "map", item)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, mistyped(key, "list", v)
	}
}

// Time reads a required instant stored as seconds since the Unix epoch.
func Time(raw Map, key string) (time.Time, error) {
	secs, err := Float(raw, key)
	if err != nil {
		return time.Time{}, err
	}
	return FromSeconds(secs), nil
}

// Seconds converts an instant to fractional Unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromSeconds converts fractional Unix seconds back to an instant with
// microsecond rounding, which is the precision a float64 keeps for
// present-day timestamps.
func FromSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	nanos := math.Round(frac*1e6) * 1e3
	return time.Unix(int64(whole), int64(nanos)).UTC()
}

// ToFloat converts any numeric representation to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func missing(key string) error {
	return apperrors.NewDecodingError(key, fmt.Sprintf("missing required field %q", key))
}

func mistyped(key, want string, got any) error {
	return apperrors.NewDecodingError(key, fmt.Sprintf("field %q: expected %s, got %T", key, want, got))
}

// Invalid reports a field whose value is present but semantically unusable.
func Invalid(key string, err error) error {
	return apperrors.Wrap(err, apperrors.ErrorTypeDecoding, "MALFORMED_RECORD",
		fmt.Sprintf("field %q is invalid", key)).WithContext("field", key)
}

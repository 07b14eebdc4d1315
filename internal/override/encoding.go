package override

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

// RawValue encodes the settings as a primitive map; absent fields are omitted.
func (s Settings) RawValue() rawvalue.Map {
	raw := rawvalue.Map{}
	if r, ok := s.TargetRange(); ok {
		raw["targetRange"] = r.RawValue()
	}
	if k, ok := s.InsulinNeedsScaleFactor(); ok {
		raw["insulinNeedsScaleFactor"] = k
	}
	return raw
}

func SettingsFromRawValue(raw rawvalue.Map) (Settings, error) {
	var targetRange *schedule.DoubleRange
	if rawvalue.Has(raw, "targetRange") {
		rawRange, err := rawvalue.Nested(raw, "targetRange")
		if err != nil {
			return Settings{}, err
		}
		r, err := schedule.DoubleRangeFromRawValue(rawRange)
		if err != nil {
			return Settings{}, err
		}
		targetRange = &r
	}

	var scaleFactor *float64
	if rawvalue.Has(raw, "insulinNeedsScaleFactor") {
		k, err := rawvalue.Float(raw, "insulinNeedsScaleFactor")
		if err != nil {
			return Settings{}, err
		}
		scaleFactor = &k
	}

	s, err := NewSettings(targetRange, scaleFactor)
	if err != nil {
		return Settings{}, rawvalue.Invalid("settings", err)
	}
	return s, nil
}

func (d Duration) RawValue() rawvalue.Map {
	if d.indefinite {
		return rawvalue.Map{"indefinite": true}
	}
	return rawvalue.Map{"finite": d.interval.Seconds()}
}

func DurationFromRawValue(raw rawvalue.Map) (Duration, error) {
	if rawvalue.Has(raw, "indefinite") {
		return Indefinite, nil
	}
	secs, err := rawvalue.Float(raw, "finite")
	if err != nil {
		return Duration{}, err
	}
	d, err := Finite(time.Duration(secs * float64(time.Second)))
	if err != nil {
		return Duration{}, rawvalue.Invalid("finite", err)
	}
	return d, nil
}

func (t EnactTrigger) RawValue() rawvalue.Map {
	if t.Kind == TriggerRemote {
		return rawvalue.Map{"type": "remote", "remoteAddress": t.RemoteAddress}
	}
	return rawvalue.Map{"type": "local"}
}

func EnactTriggerFromRawValue(raw rawvalue.Map) (EnactTrigger, error) {
	kind, err := rawvalue.String(raw, "type")
	if err != nil {
		return EnactTrigger{}, err
	}
	switch kind {
	case "local":
		return LocalTrigger, nil
	case "remote":
		address, err := rawvalue.String(raw, "remoteAddress")
		if err != nil {
			return EnactTrigger{}, err
		}
		return RemoteTrigger(address), nil
	default:
		return EnactTrigger{}, rawvalue.Invalid("type", fmt.Errorf("unknown enact trigger %q", kind))
	}
}

func (e ActualEnd) RawValue() rawvalue.Map {
	switch e.Kind {
	case EndEarly:
		return rawvalue.Map{"type": "early", "date": rawvalue.Seconds(e.Date)}
	case EndDeleted:
		return rawvalue.Map{"type": "deleted"}
	default:
		return rawvalue.Map{"type": "natural"}
	}
}

func ActualEndFromRawValue(raw rawvalue.Map) (ActualEnd, error) {
	kind, err := rawvalue.String(raw, "type")
	if err != nil {
		return ActualEnd{}, err
	}
	switch kind {
	case "natural":
		return NaturalEnd, nil
	case "deleted":
		return DeletedEnd, nil
	case "early":
		date, err := rawvalue.Time(raw, "date")
		if err != nil {
			return ActualEnd{}, err
		}
		return EarlyEnd(date), nil
	default:
		return ActualEnd{}, rawvalue.Invalid("type", fmt.Errorf("unknown actual end %q", kind))
	}
}

func (p Preset) RawValue() rawvalue.Map {
	return rawvalue.Map{
		"identifier": p.ID.String(),
		"symbol":     p.Symbol,
		"name":       p.Name,
		"settings":   p.Settings.RawValue(),
		"duration":   p.Duration.RawValue(),
	}
}

func PresetFromRawValue(raw rawvalue.Map) (Preset, error) {
	id, err := decodeUUID(raw, "identifier")
	if err != nil {
		return Preset{}, err
	}
	symbol, err := rawvalue.String(raw, "symbol")
	if err != nil {
		return Preset{}, err
	}
	name, err := rawvalue.String(raw, "name")
	if err != nil {
		return Preset{}, err
	}
	rawSettings, err := rawvalue.Nested(raw, "settings")
	if err != nil {
		return Preset{}, err
	}
	settings, err := SettingsFromRawValue(rawSettings)
	if err != nil {
		return Preset{}, err
	}
	rawDuration, err := rawvalue.Nested(raw, "duration")
	if err != nil {
		return Preset{}, err
	}
	duration, err := DurationFromRawValue(rawDuration)
	if err != nil {
		return Preset{}, err
	}
	return Preset{ID: id, Symbol: symbol, Name: name, Settings: settings, Duration: duration}, nil
}

func (c Context) RawValue() rawvalue.Map {
	raw := rawvalue.Map{"type": c.Kind.String()}
	if c.Kind == ContextPreset && c.Preset != nil {
		raw["preset"] = c.Preset.RawValue()
	}
	return raw
}

func ContextFromRawValue(raw rawvalue.Map) (Context, error) {
	kind, err := rawvalue.String(raw, "type")
	if err != nil {
		return Context{}, err
	}
	switch kind {
	case "preMeal":
		return PreMealContext, nil
	case "legacyWorkout":
		return LegacyWorkoutContext, nil
	case "custom":
		return CustomContext, nil
	case "preset":
		rawPreset, err := rawvalue.Nested(raw, "preset")
		if err != nil {
			return Context{}, err
		}
		p, err := PresetFromRawValue(rawPreset)
		if err != nil {
			return Context{}, err
		}
		return PresetContext(p), nil
	default:
		return Context{}, rawvalue.Invalid("type", fmt.Errorf("unknown context %q", kind))
	}
}

// RawValue encodes the override, including its end state, as a primitive map.
func (o Override) RawValue() rawvalue.Map {
	return rawvalue.Map{
		"context":        o.context.RawValue(),
		"settings":       o.settings.RawValue(),
		"startDate":      rawvalue.Seconds(o.startDate),
		"duration":       o.duration.RawValue(),
		"enactTrigger":   o.enactTrigger.RawValue(),
		"syncIdentifier": o.syncIdentifier.String(),
		"actualEnd":      o.actualEnd.RawValue(),
	}
}

// FromRawValue decodes an override written by RawValue. Records written
// before actualEnd existed decode as naturally ending.
func FromRawValue(raw rawvalue.Map) (Override, error) {
	rawContext, err := rawvalue.Nested(raw, "context")
	if err != nil {
		return Override{}, err
	}
	ctx, err := ContextFromRawValue(rawContext)
	if err != nil {
		return Override{}, err
	}

	rawSettings, err := rawvalue.Nested(raw, "settings")
	if err != nil {
		return Override{}, err
	}
	settings, err := SettingsFromRawValue(rawSettings)
	if err != nil {
		return Override{}, err
	}

	start, err := rawvalue.Time(raw, "startDate")
	if err != nil {
		return Override{}, err
	}

	rawDuration, err := rawvalue.Nested(raw, "duration")
	if err != nil {
		return Override{}, err
	}
	duration, err := DurationFromRawValue(rawDuration)
	if err != nil {
		return Override{}, err
	}

	rawTrigger, err := rawvalue.Nested(raw, "enactTrigger")
	if err != nil {
		return Override{}, err
	}
	trigger, err := EnactTriggerFromRawValue(rawTrigger)
	if err != nil {
		return Override{}, err
	}

	syncIdentifier, err := decodeUUID(raw, "syncIdentifier")
	if err != nil {
		return Override{}, err
	}

	actualEnd := NaturalEnd
	if rawvalue.Has(raw, "actualEnd") {
		rawEnd, err := rawvalue.Nested(raw, "actualEnd")
		if err != nil {
			return Override{}, err
		}
		if actualEnd, err = ActualEndFromRawValue(rawEnd); err != nil {
			return Override{}, err
		}
	}

	o, err := New(ctx, settings, start, duration, trigger, syncIdentifier)
	if err != nil {
		return Override{}, rawvalue.Invalid("duration", err)
	}
	return o.WithActualEnd(actualEnd), nil
}

func decodeUUID(raw rawvalue.Map, key string) (uuid.UUID, error) {
	s, err := rawvalue.String(raw, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, rawvalue.Invalid(key, err)
	}
	return id, nil
}

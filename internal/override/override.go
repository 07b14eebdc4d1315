// Package override holds temporary therapy overrides: the settings they
// apply, when they run, how they ended, and how they reshape a daily
// schedule.
package override

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
)

var ErrNonPositiveDuration = apperrors.New(apperrors.ErrorTypeValidation, "NON_POSITIVE_DURATION", "override duration must be positive")

// DistantFuture stands in for the end of an indefinite override.
var DistantFuture = time.Date(4001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Duration is either a positive finite interval or indefinite.
type Duration struct {
	interval   time.Duration
	indefinite bool
}

// Indefinite is the duration of an override that runs until cancelled.
var Indefinite = Duration{indefinite: true}

// Precision is the resolution overrides keep for instants and durations.
// It is what survives the seconds-based raw encoding, so a decoded override
// equals the one that was encoded.
const Precision = time.Microsecond

func roundTime(t time.Time) time.Time {
	return t.Round(Precision)
}

// Finite validates d > 0 after rounding to Precision.
func Finite(d time.Duration) (Duration, error) {
	d = d.Round(Precision)
	if d <= 0 {
		return Duration{}, ErrNonPositiveDuration.WithContext("duration", d.String())
	}
	return Duration{interval: d}, nil
}

// IsInfinite reports whether the duration is indefinite.
func (d Duration) IsInfinite() bool { return d.indefinite }

// Interval returns the finite length; for indefinite durations it is zero
// and ok is false.
func (d Duration) Interval() (time.Duration, bool) {
	return d.interval, !d.indefinite
}

func (d Duration) String() string {
	if d.indefinite {
		return "indefinite"
	}
	return d.interval.String()
}

// TriggerKind tells whether an override was enacted on the device or remotely.
type TriggerKind int

const (
	TriggerLocal TriggerKind = iota
	TriggerRemote
)

// EnactTrigger records who enacted the override.
type EnactTrigger struct {
	Kind          TriggerKind
	RemoteAddress string
}

var LocalTrigger = EnactTrigger{Kind: TriggerLocal}

func RemoteTrigger(address string) EnactTrigger {
	return EnactTrigger{Kind: TriggerRemote, RemoteAddress: address}
}

// EndKind is the lifecycle state of an override.
type EndKind int

const (
	EndNatural EndKind = iota
	EndEarly
	EndDeleted
)

func (k EndKind) String() string {
	switch k {
	case EndEarly:
		return "early"
	case EndDeleted:
		return "deleted"
	default:
		return "natural"
	}
}

// ActualEnd is how an override finished: at its scheduled end, early at
// Date, or retracted entirely.
type ActualEnd struct {
	Kind EndKind
	Date time.Time
}

var (
	NaturalEnd = ActualEnd{Kind: EndNatural}
	DeletedEnd = ActualEnd{Kind: EndDeleted}
)

func EarlyEnd(at time.Time) ActualEnd {
	return ActualEnd{Kind: EndEarly, Date: roundTime(at)}
}

func (e ActualEnd) Equal(other ActualEnd) bool {
	if e.Kind != other.Kind {
		return false
	}
	return e.Kind != EndEarly || e.Date.Equal(other.Date)
}

// ContextKind tags where an override came from.
type ContextKind int

const (
	ContextPreMeal ContextKind = iota
	ContextLegacyWorkout
	ContextPreset
	ContextCustom
)

var contextNames = map[ContextKind]string{
	ContextPreMeal:       "preMeal",
	ContextLegacyWorkout: "legacyWorkout",
	ContextPreset:        "preset",
	ContextCustom:        "custom",
}

func (k ContextKind) String() string {
	if name, ok := contextNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ContextKind(%d)", int(k))
}

// Context is the origin tag. Preset is set only for ContextPreset.
type Context struct {
	Kind   ContextKind
	Preset *Preset
}

var (
	PreMealContext       = Context{Kind: ContextPreMeal}
	LegacyWorkoutContext = Context{Kind: ContextLegacyWorkout}
	CustomContext        = Context{Kind: ContextCustom}
)

func PresetContext(p Preset) Context {
	return Context{Kind: ContextPreset, Preset: &p}
}

func (c Context) Equal(other Context) bool {
	if c.Kind != other.Kind {
		return false
	}
	if c.Preset == nil || other.Preset == nil {
		return c.Preset == nil && other.Preset == nil
	}
	return c.Preset.Equal(*other.Preset)
}

// Override is one activation of override settings. It is an immutable value;
// the With methods return modified copies.
type Override struct {
	context        Context
	settings       Settings
	startDate      time.Time
	duration       Duration
	enactTrigger   EnactTrigger
	syncIdentifier uuid.UUID
	actualEnd      ActualEnd
}

// New builds an override that has not ended yet.
func New(ctx Context, settings Settings, start time.Time, duration Duration, trigger EnactTrigger, syncIdentifier uuid.UUID) (Override, error) {
	if !duration.indefinite && duration.interval <= 0 {
		return Override{}, ErrNonPositiveDuration
	}
	if syncIdentifier == uuid.Nil {
		syncIdentifier = uuid.New()
	}
	return Override{
		context:        ctx,
		settings:       settings,
		startDate:      roundTime(start),
		duration:       duration,
		enactTrigger:   trigger,
		syncIdentifier: syncIdentifier,
		actualEnd:      NaturalEnd,
	}, nil
}

func (o Override) Context() Context { return o.context }

func (o Override) Settings() Settings { return o.settings }

func (o Override) StartDate() time.Time { return o.startDate }

func (o Override) Duration() Duration { return o.duration }

func (o Override) EnactTrigger() EnactTrigger { return o.enactTrigger }

func (o Override) SyncIdentifier() uuid.UUID { return o.syncIdentifier }

func (o Override) ActualEnd() ActualEnd { return o.actualEnd }

func (o Override) IsDeleted() bool { return o.actualEnd.Kind == EndDeleted }

// ScheduledEndDate is start + duration, or DistantFuture when indefinite.
func (o Override) ScheduledEndDate() time.Time {
	if o.duration.indefinite {
		return DistantFuture
	}
	return o.startDate.Add(o.duration.interval)
}

// ActualEndDate is the early end when there is one, else the scheduled end.
func (o Override) ActualEndDate() time.Time {
	if o.actualEnd.Kind == EndEarly {
		return o.actualEnd.Date
	}
	return o.ScheduledEndDate()
}

// ActiveInterval is [StartDate, ActualEndDate).
func (o Override) ActiveInterval() (time.Time, time.Time) {
	return o.startDate, o.ActualEndDate()
}

// IsActive reports whether t falls inside the active interval of a
// non-deleted override.
func (o Override) IsActive(at time.Time) bool {
	if o.IsDeleted() {
		return false
	}
	return !at.Before(o.startDate) && at.Before(o.ActualEndDate())
}

// HasFinished reports whether the override ended at or before t.
func (o Override) HasFinished(at time.Time) bool {
	return o.IsDeleted() || !at.Before(o.ActualEndDate())
}

// Overlaps reports whether two active intervals intersect.
func (o Override) Overlaps(other Override) bool {
	return o.startDate.Before(other.ActualEndDate()) && other.startDate.Before(o.ActualEndDate())
}

func (o Override) WithSettings(s Settings) Override {
	o.settings = s
	return o
}

func (o Override) WithActualEnd(end ActualEnd) Override {
	if end.Kind == EndEarly {
		end.Date = roundTime(end.Date)
	}
	o.actualEnd = end
	return o
}

// WithStartDate moves the start while keeping the scheduled end fixed for
// finite durations.
func (o Override) WithStartDate(start time.Time) Override {
	start = roundTime(start)
	if !o.duration.indefinite {
		end := o.ScheduledEndDate()
		o.duration.interval = end.Sub(start)
	}
	o.startDate = start
	return o
}

// WithScheduledEndDate sets a finite duration ending at end.
func (o Override) WithScheduledEndDate(end time.Time) Override {
	o.duration = Duration{interval: roundTime(end).Sub(o.startDate)}
	return o
}

// WithEarlyEndApplied folds an early end into the scheduled duration, the
// form used when reporting history to consumers. The result ends naturally.
func (o Override) WithEarlyEndApplied() Override {
	if o.actualEnd.Kind == EndEarly {
		o.duration = Duration{interval: o.actualEnd.Date.Sub(o.startDate)}
		o.actualEnd = NaturalEnd
	}
	return o
}

// Equal compares all fields by value.
func (o Override) Equal(other Override) bool {
	return o.context.Equal(other.context) &&
		o.settings == other.settings &&
		o.startDate.Equal(other.startDate) &&
		o.duration == other.duration &&
		o.enactTrigger == other.enactTrigger &&
		o.syncIdentifier == other.syncIdentifier &&
		o.actualEnd.Equal(other.actualEnd)
}

func (o Override) String() string {
	return fmt.Sprintf("Override{%s start=%s duration=%s end=%s context=%s}",
		o.syncIdentifier, o.startDate.Format(time.RFC3339), o.duration, o.actualEnd.Kind, o.context.Kind)
}

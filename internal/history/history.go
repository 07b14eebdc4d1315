// Package history keeps the modification-counted log of override
// activations and resolves it against therapy schedules.
package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

const (
	// DefaultRelevantTimeWindow bounds both pruning and the resolved view.
	DefaultRelevantTimeWindow = 10 * time.Hour

	// taintedLogRetention is how long a tainted log is kept after the latest
	// start it contains.
	taintedLogRetention = 48 * time.Hour

	// epsilon nudges a cancellation point just before the next start. It is the
	// finest step that survives the seconds-based raw encoding.
	epsilon = time.Microsecond
)

// Event is one override as the log last saw it, stamped with the counter
// value at which it was last mutated.
type Event struct {
	Override            override.Override
	ModificationCounter int64
}

// QueryAnchor marks how far a client has synchronized.
type QueryAnchor struct {
	ModificationCounter int64
}

// InvariantViolationError reports two overlapping overrides in the resolved
// view. It is raised through the abort handler and is not recoverable.
type InvariantViolationError struct {
	First           override.Override
	Second          override.Override
	TaintedEventLog []Event
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("overlapping overrides in history: %s and %s", e.First, e.Second)
}

// Is matches apperrors.ErrOverlappingState.
func (e *InvariantViolationError) Is(target error) bool {
	return target == apperrors.ErrOverlappingState
}

// Listener is called after every mutating call, outside the lock.
type Listener func(*History)

// AbortHandler stops the process on an invariant violation. It must not
// return.
type AbortHandler func(error)

type Option func(*History)

func WithRelevantTimeWindow(d time.Duration) Option {
	return func(h *History) {
		if d > 0 {
			h.relevantTimeWindow = d
		}
	}
}

func WithListener(l Listener) Option {
	return func(h *History) { h.listener = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *History) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithAbortHandler(a AbortHandler) Option {
	return func(h *History) {
		if a != nil {
			h.abort = a
		}
	}
}

// History is the override event log. All methods are safe for concurrent use.
type History struct {
	mu                  sync.Mutex
	recentEvents        []Event
	taintedEventLog     []Event
	modificationCounter int64

	relevantTimeWindow time.Duration
	listener           Listener
	logger             *slog.Logger
	abort              AbortHandler
}

func New(opts ...Option) *History {
	h := &History{
		relevantTimeWindow: DefaultRelevantTimeWindow,
		logger:             logger.GetLogger(),
		abort:              func(err error) { panic(err) },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetListener replaces the registered listener.
func (h *History) SetListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

func (h *History) RelevantTimeWindow() time.Duration {
	return h.relevantTimeWindow
}

// RecordOverride records o as enabled at enableDate. A nil o cancels whatever
// is active at enableDate. Re-recording the latest override is a no-op; an
// override whose sync identifier is already logged replaces that entry.
func (h *History) RecordOverride(o *override.Override, enableDate time.Time) {
	h.mu.Lock()
	h.clearExpiredTaintedLog(enableDate)
	h.prune(enableDate)

	mutated := false
	switch {
	case o == nil:
		mutated = h.cancelActiveOverride(enableDate)
	case h.isLastUndeleted(*o):
		// already recorded
	default:
		if i := h.indexOf(*o); i >= 0 {
			h.recentEvents[i] = Event{Override: *o, ModificationCounter: h.modificationCounter}
			h.logger.Debug("Override edited", "sync_identifier", o.SyncIdentifier())
		} else {
			h.record(*o, enableDate)
		}
		mutated = true
	}

	if mutated {
		h.modificationCounter++
	}
	listener := h.listener
	h.mu.Unlock()

	if mutated && listener != nil {
		listener(h)
	}
}

// CancelActiveOverride ends the active override at date.
func (h *History) CancelActiveOverride(date time.Time) {
	h.RecordOverride(nil, date)
}

func (h *History) record(o override.Override, enableDate time.Time) {
	h.deleteEventsStarting(o.StartDate())

	cancelAt := o.StartDate().Add(-epsilon)
	if enableDate.Before(cancelAt) {
		cancelAt = enableDate
	}
	h.cancelActiveOverride(cancelAt)

	h.recentEvents = append(h.recentEvents, Event{Override: o, ModificationCounter: h.modificationCounter})
	h.logger.Debug("Override recorded",
		"sync_identifier", o.SyncIdentifier(),
		"start", o.StartDate(),
		"duration", o.Duration().String())
}

// deleteEventsStarting marks every undeleted event starting at or after date
// as deleted.
func (h *History) deleteEventsStarting(date time.Time) {
	for i, e := range h.recentEvents {
		if e.Override.IsDeleted() || e.Override.StartDate().Before(date) {
			continue
		}
		h.recentEvents[i] = Event{
			Override:            e.Override.WithActualEnd(override.DeletedEnd),
			ModificationCounter: h.modificationCounter,
		}
	}
}

// cancelActiveOverride ends the latest undeleted override at date: early if it
// had started by then, deleted if it never ran.
func (h *History) cancelActiveOverride(date time.Time) bool {
	i := h.lastUndeletedIndex()
	if i < 0 {
		return false
	}
	o := h.recentEvents[i].Override
	if !o.ActualEndDate().After(date) {
		return false
	}

	end := override.DeletedEnd
	if o.StartDate().Before(date) {
		end = override.EarlyEnd(date)
	}
	h.recentEvents[i] = Event{Override: o.WithActualEnd(end), ModificationCounter: h.modificationCounter}
	h.logger.Debug("Override cancelled", "sync_identifier", o.SyncIdentifier(), "end", end.Kind.String())
	return true
}

func (h *History) lastUndeletedIndex() int {
	for i := len(h.recentEvents) - 1; i >= 0; i-- {
		if !h.recentEvents[i].Override.IsDeleted() {
			return i
		}
	}
	return -1
}

func (h *History) isLastUndeleted(o override.Override) bool {
	i := h.lastUndeletedIndex()
	return i >= 0 && h.recentEvents[i].Override.Equal(o)
}

func (h *History) indexOf(o override.Override) int {
	for i := len(h.recentEvents) - 1; i >= 0; i-- {
		if h.recentEvents[i].Override.SyncIdentifier() == o.SyncIdentifier() {
			return i
		}
	}
	return -1
}

// prune drops events that ended before the relevance window around date.
// A deleted override never ran, so it ages out from its start.
func (h *History) prune(date time.Time) {
	cutoff := date.Add(-h.relevantTimeWindow)
	kept := h.recentEvents[:0]
	for _, e := range h.recentEvents {
		end := e.Override.ActualEndDate()
		if e.Override.IsDeleted() {
			end = e.Override.StartDate()
		}
		if end.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(h.recentEvents); i++ {
		h.recentEvents[i] = Event{}
	}
	h.recentEvents = kept
}

func (h *History) clearExpiredTaintedLog(date time.Time) {
	if len(h.taintedEventLog) == 0 {
		return
	}
	latest := h.taintedEventLog[0].Override.StartDate()
	for _, e := range h.taintedEventLog[1:] {
		if e.Override.StartDate().After(latest) {
			latest = e.Override.StartDate()
		}
	}
	if !date.Before(latest.Add(taintedLogRetention)) {
		h.logger.Info("Clearing tainted override log", "events", len(h.taintedEventLog))
		h.taintedEventLog = nil
	}
}

// ActiveOverride returns the override in effect at date, if any.
func (h *History) ActiveOverride(date time.Time) (override.Override, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.recentEvents) - 1; i >= 0; i-- {
		if o := h.recentEvents[i].Override; o.IsActive(date) {
			return o, true
		}
	}
	return override.Override{}, false
}

// Events returns a copy of the log in append order.
func (h *History) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.recentEvents...)
}

// TaintedEventLog returns the snapshot captured at the last invariant
// violation, if it has not expired.
func (h *History) TaintedEventLog() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.taintedEventLog...)
}

func (h *History) ModificationCounter() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.modificationCounter
}

// OverridesReflectingEnabledDuration returns the undeleted overrides clamped
// to the relevance window around date, with early ends folded in.
func (h *History) OverridesReflectingEnabledDuration(date time.Time) []override.Override {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overridesReflectingEnabledDuration(date)
}

func (h *History) overridesReflectingEnabledDuration(date time.Time) []override.Override {
	windowStart := date.Add(-h.relevantTimeWindow)
	windowEnd := date.Add(h.relevantTimeWindow)

	var overrides []override.Override
	for _, e := range h.recentEvents {
		if e.Override.IsDeleted() {
			continue
		}
		o := e.Override.WithEarlyEndApplied()
		// end first: moving the start of a finite override keeps its end
		if o.ScheduledEndDate().After(windowEnd) {
			o = o.WithScheduledEndDate(windowEnd)
		}
		if o.StartDate().Before(windowStart) {
			o = o.WithStartDate(windowStart)
		}
		if !o.ScheduledEndDate().After(o.StartDate()) {
			continue
		}
		overrides = append(overrides, o)
	}

	h.validate(overrides)
	return overrides
}

// validate aborts if any two overrides overlap, after capturing the log and
// removing the offending events.
func (h *History) validate(overrides []override.Override) {
	for i := range overrides {
		for j := i + 1; j < len(overrides); j++ {
			if !overrides[i].Overlaps(overrides[j]) {
				continue
			}
			violation := &InvariantViolationError{
				First:           overrides[i],
				Second:          overrides[j],
				TaintedEventLog: append([]Event(nil), h.recentEvents...),
			}
			h.taintedEventLog = violation.TaintedEventLog
			h.removeEvents(overrides[i], overrides[j])
			h.logger.Error("Overlapping overrides in history",
				"first", overrides[i].String(),
				"second", overrides[j].String(),
				"tainted_events", len(violation.TaintedEventLog))
			h.abort(violation)
			panic(violation)
		}
	}
}

func (h *History) removeEvents(offending ...override.Override) {
	kept := make([]Event, 0, len(h.recentEvents))
	for _, e := range h.recentEvents {
		drop := false
		for _, o := range offending {
			if e.Override.SyncIdentifier() == o.SyncIdentifier() {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, e)
		}
	}
	h.recentEvents = kept
}

// resolve prunes the log relative to date and folds every relevant override
// into base in event order.
func resolve[T any](h *History, base *schedule.Schedule[T], date time.Time, apply func(override.Override, *schedule.Schedule[T], time.Time) *schedule.Schedule[T]) *schedule.Schedule[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune(date)
	resolved := base
	for _, o := range h.overridesReflectingEnabledDuration(date) {
		resolved = apply(o, resolved, date)
	}
	return resolved
}

func (h *History) ResolvingRecentBasalSchedule(base *schedule.Schedule[float64], date time.Time) *schedule.Schedule[float64] {
	return resolve(h, base, date, override.ApplyToBasal)
}

func (h *History) ResolvingRecentInsulinSensitivitySchedule(base *schedule.Schedule[float64], date time.Time) *schedule.Schedule[float64] {
	return resolve(h, base, date, override.ApplyToSensitivity)
}

func (h *History) ResolvingRecentCarbRatioSchedule(base *schedule.Schedule[float64], date time.Time) *schedule.Schedule[float64] {
	return resolve(h, base, date, override.ApplyToCarbRatio)
}

func (h *History) ResolvingRecentGlucoseRangeSchedule(base *schedule.Schedule[schedule.DoubleRange], date time.Time) *schedule.Schedule[schedule.DoubleRange] {
	return resolve(h, base, date, override.ApplyToTargetRange)
}

// QueryByAnchor returns every event mutated at or after anchor, split into
// deleted and remaining overrides, plus the anchor to pass next time. A nil
// anchor returns the whole log.
func (h *History) QueryByAnchor(anchor *QueryAnchor) (results, deleted []override.Override, next QueryAnchor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var since int64
	if anchor != nil {
		since = anchor.ModificationCounter
	}
	for _, e := range h.recentEvents {
		if e.ModificationCounter < since {
			continue
		}
		if e.Override.IsDeleted() {
			deleted = append(deleted, e.Override)
		} else {
			results = append(results, e.Override.WithEarlyEndApplied())
		}
	}
	return results, deleted, QueryAnchor{ModificationCounter: h.modificationCounter}
}

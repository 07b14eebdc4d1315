package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/interfaces"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

const persistTimeout = 5 * time.Second

var ErrPresetsUnavailable = apperrors.New(apperrors.ErrorTypeInternal, "PRESETS_UNAVAILABLE", "Preset storage is not configured")

// OverrideServiceConfig configures the override service.
type OverrideServiceConfig struct {
	RelevantTimeWindow time.Duration
	Logger             *slog.Logger
	Now                func() time.Time

	// Circuit breaker around history saves
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultOverrideServiceConfig returns sensible defaults.
func DefaultOverrideServiceConfig() OverrideServiceConfig {
	return OverrideServiceConfig{
		RelevantTimeWindow: history.DefaultRelevantTimeWindow,
		Now:                time.Now,
		FailureThreshold:   3,
		BreakerTimeout:     30 * time.Second,
	}
}

// OverrideService keeps one override history per user in memory, mirrors
// every change to the history repository and serves anchored sync.
type OverrideService struct {
	histories interfaces.HistoryRepository
	presets   interfaces.PresetRepository
	anchors   interfaces.AnchorStore
	schedules ScheduleSource
	breaker   *gobreaker.CircuitBreaker[any]
	config    OverrideServiceConfig
	logger    *slog.Logger

	mu     sync.Mutex
	loaded map[int64]*history.History
}

// NewOverrideService creates the service. presets may be nil, which disables
// the preset operations.
func NewOverrideService(
	histories interfaces.HistoryRepository,
	presets interfaces.PresetRepository,
	anchors interfaces.AnchorStore,
	schedules ScheduleSource,
	config OverrideServiceConfig,
) *OverrideService {
	defaults := DefaultOverrideServiceConfig()
	if config.RelevantTimeWindow <= 0 {
		config.RelevantTimeWindow = defaults.RelevantTimeWindow
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = defaults.BreakerTimeout
	}
	log := config.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	s := &OverrideService{
		histories: histories,
		presets:   presets,
		anchors:   anchors,
		schedules: schedules,
		config:    config,
		logger:    log,
		loaded:    make(map[int64]*history.History),
	}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "history-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return s
}

// History returns the user's history, loading the stored snapshot on first
// use.
func (s *OverrideService) History(ctx context.Context, telegramID int64) (*history.History, error) {
	s.mu.Lock()
	h, ok := s.loaded[telegramID]
	s.mu.Unlock()
	if ok {
		return h, nil
	}

	// load without the lock so one slow store read does not block other users
	h, err := s.load(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.loaded[telegramID]; ok {
		return existing, nil
	}
	s.loaded[telegramID] = h
	return h, nil
}

func (s *OverrideService) load(ctx context.Context, telegramID int64) (*history.History, error) {
	opts := []history.Option{
		history.WithRelevantTimeWindow(s.config.RelevantTimeWindow),
		history.WithLogger(s.logger.With("telegram_id", telegramID)),
		history.WithListener(func(h *history.History) {
			s.persist(telegramID, h)
		}),
	}

	raw, err := s.histories.LoadHistory(ctx, telegramID)
	switch {
	case errors.Is(err, apperrors.ErrHistoryNotFound):
		return history.New(opts...), nil
	case err != nil:
		return nil, fmt.Errorf("failed to load override history: %w", err)
	}
	h, err := history.FromRawValue(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode override history: %w", err)
	}
	return h, nil
}

// persist saves a snapshot. A failed or skipped save leaves memory state
// alone; the next successful save carries the change.
func (s *OverrideService) persist(telegramID int64, h *history.History) {
	raw := h.RawValue()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.histories.SaveHistory(ctx, telegramID, raw)
	})
	switch {
	case err == nil:
		s.logger.Debug("Override history saved", "telegram_id", telegramID, "modification_counter", raw["modificationCounter"])
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.logger.Warn("History store unavailable, keeping changes in memory", "telegram_id", telegramID)
	default:
		s.logger.Error("Failed to save override history", "telegram_id", telegramID, "error", err)
	}
}

// guard saves the tainted log of a history that just aborted, then lets the
// abort continue.
func (s *OverrideService) guard(telegramID int64, h *history.History) {
	if r := recover(); r != nil {
		var violation *history.InvariantViolationError
		if err, ok := r.(error); ok && errors.As(err, &violation) {
			s.persist(telegramID, h)
		}
		panic(r)
	}
}

// Record logs a fully formed override, enabled now. An override whose sync
// identifier is already known replaces the logged one.
func (s *OverrideService) Record(ctx context.Context, telegramID int64, o override.Override) error {
	h, err := s.History(ctx, telegramID)
	if err != nil {
		return err
	}
	h.RecordOverride(&o, s.config.Now())
	return nil
}

// Enact starts a custom override.
func (s *OverrideService) Enact(ctx context.Context, telegramID int64, settings override.Settings, start time.Time, duration override.Duration, trigger override.EnactTrigger) (override.Override, error) {
	o, err := override.New(override.CustomContext, settings, start, duration, trigger, uuid.New())
	if err != nil {
		return override.Override{}, err
	}
	if err := s.Record(ctx, telegramID, o); err != nil {
		return override.Override{}, err
	}
	return o, nil
}

// EnactPreset starts an override from one of the user's presets.
func (s *OverrideService) EnactPreset(ctx context.Context, telegramID int64, presetID uuid.UUID, start time.Time, trigger override.EnactTrigger) (override.Override, error) {
	if s.presets == nil {
		return override.Override{}, ErrPresetsUnavailable
	}
	preset, err := s.presets.GetPreset(ctx, telegramID, presetID)
	if err != nil {
		return override.Override{}, err
	}
	o, err := preset.CreateOverride(trigger, start)
	if err != nil {
		return override.Override{}, err
	}
	if err := s.Record(ctx, telegramID, o); err != nil {
		return override.Override{}, err
	}
	return o, nil
}

// Cancel ends whatever override is active now.
func (s *OverrideService) Cancel(ctx context.Context, telegramID int64) error {
	h, err := s.History(ctx, telegramID)
	if err != nil {
		return err
	}
	h.CancelActiveOverride(s.config.Now())
	return nil
}

// Status resolves the user's schedules at the current time.
func (s *OverrideService) Status(ctx context.Context, telegramID int64) (*domain.OverrideStatus, error) {
	h, err := s.History(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	schedules, err := s.schedules.TherapySchedules(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	defer s.guard(telegramID, h)

	now := s.config.Now()
	status := &domain.OverrideStatus{At: now}
	if active, ok := h.ActiveOverride(now); ok {
		status.Active = &active
	}
	for _, e := range h.Events() {
		if !e.Override.IsDeleted() && e.Override.StartDate().After(now) {
			status.Upcoming = append(status.Upcoming, e.Override)
		}
	}

	if schedules.Basal != nil {
		v := h.ResolvingRecentBasalSchedule(schedules.Basal, now).ValueAt(now)
		status.Basal = &v
	}
	if schedules.Sensitivity != nil {
		v := h.ResolvingRecentInsulinSensitivitySchedule(schedules.Sensitivity, now).ValueAt(now)
		status.Sensitivity = &v
	}
	if schedules.CarbRatio != nil {
		v := h.ResolvingRecentCarbRatioSchedule(schedules.CarbRatio, now).ValueAt(now)
		status.CarbRatio = &v
	}
	if schedules.Target != nil {
		v := h.ResolvingRecentGlucoseRangeSchedule(schedules.Target, now).ValueAt(now)
		status.Target = &v
	}
	return status, nil
}

// Sync returns what changed since the client's last sync and advances its
// anchor.
func (s *OverrideService) Sync(ctx context.Context, telegramID int64, clientID string) (*domain.SyncResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, apperrors.NewValidationError("INVALID_CLIENT", "client id is required")
	}
	h, err := s.History(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	anchor, err := s.anchors.GetAnchor(ctx, telegramID, clientID)
	if err != nil {
		return nil, err
	}
	if anchor != nil && anchor.ModificationCounter > h.ModificationCounter() {
		// the stored history is older than the client's view
		s.logger.Warn("Sync anchor ahead of history, resyncing from scratch",
			"telegram_id", telegramID, "client_id", clientID, "anchor", anchor.ModificationCounter)
		anchor = nil
	}

	results, deleted, next := h.QueryByAnchor(anchor)
	if err := s.anchors.SetAnchor(ctx, telegramID, clientID, next); err != nil {
		return nil, err
	}
	return &domain.SyncResult{
		ClientID: clientID,
		Changed:  results,
		Deleted:  deleted,
		Anchor:   next,
	}, nil
}

// Events returns the user's recent event log.
func (s *OverrideService) Events(ctx context.Context, telegramID int64) ([]history.Event, error) {
	h, err := s.History(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return h.Events(), nil
}

// SavePreset stores a preset, assigning an ID to new ones.
func (s *OverrideService) SavePreset(ctx context.Context, telegramID int64, preset override.Preset) error {
	if s.presets == nil {
		return ErrPresetsUnavailable
	}
	if strings.TrimSpace(preset.Name) == "" {
		return apperrors.NewValidationError("INVALID_PRESET", "preset name is required")
	}
	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	return s.presets.SavePreset(ctx, telegramID, preset)
}

func (s *OverrideService) Presets(ctx context.Context, telegramID int64) ([]override.Preset, error) {
	if s.presets == nil {
		return nil, ErrPresetsUnavailable
	}
	return s.presets.ListPresets(ctx, telegramID)
}

func (s *OverrideService) DeletePreset(ctx context.Context, telegramID int64, presetID uuid.UUID) error {
	if s.presets == nil {
		return ErrPresetsUnavailable
	}
	return s.presets.DeletePreset(ctx, telegramID, presetID)
}

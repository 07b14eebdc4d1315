package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
	"github.com/vladimiradmaev/therapy-overrides/internal/utils"
	"gorm.io/gorm"
)

// ScheduleSource supplies the base schedules overrides are resolved against
type ScheduleSource interface {
	TherapySchedules(ctx context.Context, telegramID int64) (*domain.TherapySchedules, error)
}

var scheduleKinds = map[string]bool{
	database.ScheduleBasal:       true,
	database.ScheduleSensitivity: true,
	database.ScheduleCarbRatio:   true,
	database.ScheduleTarget:      true,
}

type ScheduleService struct {
	db         *gorm.DB
	defaultLoc *time.Location
}

// NewScheduleService creates the service. defaultLoc is used for users that
// never picked a time zone; nil means UTC.
func NewScheduleService(db *gorm.DB, defaultLoc *time.Location) *ScheduleService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &ScheduleService{
		db:         db,
		defaultLoc: defaultLoc,
	}
}

// SetEntry creates the item starting at startTime or replaces its value.
// maxValue is only read for target entries.
func (s *ScheduleService) SetEntry(ctx context.Context, userID uint, kind, startTime string, value, maxValue float64) error {
	entry, err := newScheduleEntry(kind, startTime, value, maxValue)
	if err != nil {
		return err
	}
	entry.UserID = userID

	var existing database.ScheduleEntry
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND start_time = ?", userID, entry.Kind, entry.StartTime).
		First(&existing).Error
	switch {
	case err == nil:
		result := s.db.WithContext(ctx).
			Model(&existing).
			Updates(map[string]interface{}{
				"value":     entry.Value,
				"max_value": entry.MaxValue,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update schedule entry: %w", result.Error)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create schedule entry: %w", err)
		}
	default:
		return fmt.Errorf("failed to check existing entries: %w", err)
	}

	return nil
}

func (s *ScheduleService) GetEntries(ctx context.Context, userID uint, kind string) ([]database.ScheduleEntry, error) {
	var entries []database.ScheduleEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("start_time ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get schedule entries: %w", err)
	}
	return entries, nil
}

func (s *ScheduleService) ClearSchedule(ctx context.Context, userID uint, kind string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Delete(&database.ScheduleEntry{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule entries: %w", result.Error)
	}
	return nil
}

// TherapySchedules builds every base schedule the user has entered, in the
// user's time zone.
func (s *ScheduleService) TherapySchedules(ctx context.Context, telegramID int64) (*domain.TherapySchedules, error) {
	var user database.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound.WithContext("telegram_id", telegramID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	loc := s.defaultLoc
	if user.TimeZone != "" {
		if loc, err = time.LoadLocation(user.TimeZone); err != nil {
			return nil, apperrors.NewValidationError("INVALID_TIME_ZONE", fmt.Sprintf("unknown time zone %q", user.TimeZone))
		}
	}

	var entries []database.ScheduleEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get schedule entries: %w", err)
	}

	return BuildTherapySchedules(entries, loc)
}

// BuildTherapySchedules groups entries by kind. Kinds without entries stay
// nil.
func BuildTherapySchedules(entries []database.ScheduleEntry, loc *time.Location) (*domain.TherapySchedules, error) {
	var (
		values  = make(map[string][]schedule.Item[float64])
		targets []schedule.Item[schedule.DoubleRange]
	)
	for _, e := range entries {
		offset, err := utils.ParseClockOffset(e.StartTime)
		if err != nil {
			return nil, apperrors.NewValidationError("INVALID_START_TIME", err.Error())
		}
		if e.Kind == database.ScheduleTarget {
			r, err := schedule.NewDoubleRange(e.Value, e.MaxValue)
			if err != nil {
				return nil, err
			}
			targets = append(targets, schedule.Item[schedule.DoubleRange]{StartOffset: offset, Value: r})
			continue
		}
		values[e.Kind] = append(values[e.Kind], schedule.Item[float64]{StartOffset: offset, Value: e.Value})
	}

	build := func(kind string) (*schedule.Schedule[float64], error) {
		if len(values[kind]) == 0 {
			return nil, nil
		}
		return schedule.New(values[kind], loc)
	}

	var (
		out domain.TherapySchedules
		err error
	)
	if out.Basal, err = build(database.ScheduleBasal); err != nil {
		return nil, err
	}
	if out.Sensitivity, err = build(database.ScheduleSensitivity); err != nil {
		return nil, err
	}
	if out.CarbRatio, err = build(database.ScheduleCarbRatio); err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		if out.Target, err = schedule.New(targets, loc); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// ParseScheduleEntries reads "HH:MM=value" pairs separated by commas. Target
// values are written "min-max".
func ParseScheduleEntries(kind, spec string) ([]database.ScheduleEntry, error) {
	var entries []database.ScheduleEntry
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clock, rawValue, ok := strings.Cut(part, "=")
		if !ok {
			return nil, apperrors.NewValidationError("INVALID_ENTRY", fmt.Sprintf("entry %q must look like HH:MM=value", part))
		}

		var value, maxValue float64
		var err error
		if kind == database.ScheduleTarget {
			lo, hi, ok := strings.Cut(rawValue, "-")
			if !ok {
				return nil, apperrors.NewValidationError("INVALID_ENTRY", fmt.Sprintf("target %q must look like min-max", rawValue))
			}
			if value, err = parsePositive(lo); err == nil {
				maxValue, err = parsePositive(hi)
			}
		} else {
			value, err = parsePositive(rawValue)
		}
		if err != nil {
			return nil, err
		}

		entry, err := newScheduleEntry(kind, strings.TrimSpace(clock), value, maxValue)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return utils.TimeToMinutes(entries[i].StartTime) < utils.TimeToMinutes(entries[j].StartTime)
	})
	return entries, nil
}

func newScheduleEntry(kind, startTime string, value, maxValue float64) (database.ScheduleEntry, error) {
	if !scheduleKinds[kind] {
		return database.ScheduleEntry{}, apperrors.NewValidationError("INVALID_KIND", fmt.Sprintf("unknown schedule kind %q", kind))
	}
	offset, err := utils.ParseClockOffset(startTime)
	if err != nil {
		return database.ScheduleEntry{}, apperrors.NewValidationError("INVALID_START_TIME", err.Error())
	}
	if value <= 0 {
		return database.ScheduleEntry{}, apperrors.NewValidationError("INVALID_VALUE", "schedule values must be positive")
	}
	if kind == database.ScheduleTarget {
		if _, err := schedule.NewDoubleRange(value, maxValue); err != nil {
			return database.ScheduleEntry{}, err
		}
	} else {
		maxValue = 0
	}

	return database.ScheduleEntry{
		Kind:      kind,
		StartTime: utils.FormatClockOffset(offset),
		Value:     value,
		MaxValue:  maxValue,
	}, nil
}

func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil || v <= 0 {
		return 0, apperrors.NewValidationError("INVALID_VALUE", fmt.Sprintf("%q is not a positive number", s))
	}
	return v, nil
}

// StaticSchedules serves the same schedules to every user.
type StaticSchedules struct {
	Schedules domain.TherapySchedules
}

func (s StaticSchedules) TherapySchedules(context.Context, int64) (*domain.TherapySchedules, error) {
	out := s.Schedules
	return &out, nil
}

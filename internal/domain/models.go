package domain

import (
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

// TherapySchedules are a user's base daily schedules. Any of them may be nil
// when the user has not entered it yet.
type TherapySchedules struct {
	Basal       *schedule.Schedule[float64]
	Sensitivity *schedule.Schedule[float64]
	CarbRatio   *schedule.Schedule[float64]
	Target      *schedule.Schedule[schedule.DoubleRange]
}

// OverrideStatus is the effective therapy at a point in time.
type OverrideStatus struct {
	At       time.Time
	Active   *override.Override
	Upcoming []override.Override

	// Effective values at At, nil when the base schedule is missing
	Basal       *float64
	Sensitivity *float64
	CarbRatio   *float64
	Target      *schedule.DoubleRange
}

// SyncResult is what changed for one client since its last sync.
type SyncResult struct {
	ClientID string
	Changed  []override.Override
	Deleted  []override.Override
	Anchor   history.QueryAnchor
}

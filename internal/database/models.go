package database

import (
	"gorm.io/gorm"
)

// Schedule kinds stored in ScheduleEntry.Kind.
const (
	ScheduleBasal       = "basal"
	ScheduleSensitivity = "sensitivity"
	ScheduleCarbRatio   = "carb_ratio"
	ScheduleTarget      = "target"
)

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	FirstName  string
	LastName   string
	TimeZone   string // IANA name, empty for the server default
}

// ScheduleEntry is one item of a user's daily therapy schedule.
type ScheduleEntry struct {
	gorm.Model
	UserID    uint `gorm:"index"`
	User      User
	Kind      string
	StartTime string  // Format: "HH:MM"
	Value     float64 // U/h, mg/dL/U, g/U, or the lower target bound
	MaxValue  float64 // upper target bound, target entries only
}

type OverridePreset struct {
	gorm.Model
	TelegramID      int64  `gorm:"index"`
	PresetID        string `gorm:"uniqueIndex"`
	Symbol          string
	Name            string
	ScaleFactor     *float64
	TargetMin       *float64
	TargetMax       *float64
	DurationMinutes int // 0 means indefinite
}

// OverrideHistory holds the latest raw snapshot of a user's override log.
type OverrideHistory struct {
	gorm.Model
	TelegramID          int64 `gorm:"uniqueIndex"`
	ModificationCounter int64
	Payload             string `gorm:"type:text"`
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{&User{}, &ScheduleEntry{}, &OverridePreset{}, &OverrideHistory{}}
}

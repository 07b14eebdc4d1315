package utils

import (
	"fmt"
	"time"
)

// ParseClockOffset converts an "HH:MM" clock string to the offset from
// midnight.
func ParseClockOffset(clock string) (time.Duration, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", clock, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatClockOffset is the inverse of ParseClockOffset.
func FormatClockOffset(offset time.Duration) string {
	minutes := int(offset / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TimeToMinutes converts time string to minutes since midnight
func TimeToMinutes(timeStr string) int {
	offset, _ := ParseClockOffset(timeStr)
	return int(offset / time.Minute)
}

package arg

import (
	"fmt"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/services"
)

// schedules builds the base schedules given on the command line. Kinds left
// empty resolve to nothing.
func (o *options) schedules() (services.StaticSchedules, error) {
	loc, err := time.LoadLocation(o.timeZone)
	if err != nil {
		return services.StaticSchedules{}, fmt.Errorf("invalid --tz: %w", err)
	}

	var entries []database.ScheduleEntry
	for kind, spec := range map[string]string{
		database.ScheduleBasal:       o.basal,
		database.ScheduleSensitivity: o.sensitivity,
		database.ScheduleCarbRatio:   o.carbRatio,
		database.ScheduleTarget:      o.target,
	} {
		if spec == "" {
			continue
		}
		parsed, err := services.ParseScheduleEntries(kind, spec)
		if err != nil {
			return services.StaticSchedules{}, fmt.Errorf("invalid --%s schedule: %w", kind, err)
		}
		entries = append(entries, parsed...)
	}

	built, err := services.BuildTherapySchedules(entries, loc)
	if err != nil {
		return services.StaticSchedules{}, err
	}
	return services.StaticSchedules{Schedules: *built}, nil
}

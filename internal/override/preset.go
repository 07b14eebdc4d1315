package override

import (
	"time"

	"github.com/google/uuid"
)

// Preset is a named, reusable set of override settings.
type Preset struct {
	ID       uuid.UUID
	Symbol   string
	Name     string
	Settings Settings
	Duration Duration
}

func (p Preset) Equal(other Preset) bool {
	return p.ID == other.ID &&
		p.Symbol == other.Symbol &&
		p.Name == other.Name &&
		p.Settings == other.Settings &&
		p.Duration == other.Duration
}

// CreateOverride enacts the preset starting at start with a fresh sync
// identifier.
func (p Preset) CreateOverride(trigger EnactTrigger, start time.Time) (Override, error) {
	return New(PresetContext(p), p.Settings, start, p.Duration, trigger, uuid.New())
}

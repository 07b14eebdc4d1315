package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/utils"
)

func TestParseClockOffset(t *testing.T) {
	tests := []struct {
		clock string
		want  time.Duration
	}{
		{"00:00", 0},
		{"06:30", 6*time.Hour + 30*time.Minute},
		{"23:59", 23*time.Hour + 59*time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			got, err := utils.ParseClockOffset(tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clock, utils.FormatClockOffset(got))
		})
	}
}

func TestParseClockOffset_Invalid(t *testing.T) {
	for _, clock := range []string{"", "24:00", "7", "07:60", "seven"} {
		_, err := utils.ParseClockOffset(clock)
		assert.Error(t, err, clock)
	}
}

func TestTimeToMinutes(t *testing.T) {
	assert.Equal(t, 90, utils.TimeToMinutes("01:30"))
	assert.Equal(t, 0, utils.TimeToMinutes("bogus"))
}

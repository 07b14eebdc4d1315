package history_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

func throughJSON(t *testing.T, raw rawvalue.Map) rawvalue.Map {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	var out rawvalue.Map
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func assertSameEvents(t *testing.T, want, got []history.Event) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ModificationCounter, got[i].ModificationCounter)
		assert.True(t, want[i].Override.Equal(got[i].Override), "event %d: want %s, got %s", i, want[i].Override, got[i].Override)
	}
}

func TestHistory_RawValueRoundTrip(t *testing.T) {
	h := history.New()
	a := newOverride(t, 0.5, at(8), 4*time.Hour)
	b := newOverride(t, 1.5, at(12), time.Hour)
	c := newOverride(t, 1.1, at(10), 0)
	h.RecordOverride(&a, at(8))
	h.RecordOverride(&b, at(9))
	h.RecordOverride(&c, at(10))

	restored, err := history.FromRawValue(throughJSON(t, h.RawValue()))
	require.NoError(t, err)

	assert.Equal(t, h.ModificationCounter(), restored.ModificationCounter())
	assertSameEvents(t, h.Events(), restored.Events())
	assert.Empty(t, restored.TaintedEventLog())

	// restored state keeps recording where the original left off
	restored.CancelActiveOverride(at(11))
	assert.Equal(t, h.ModificationCounter()+1, restored.ModificationCounter())
}

func TestHistory_ReloadedRecordStaysIdempotent(t *testing.T) {
	start := at(10).Add(123456789 * time.Nanosecond)
	a := newOverride(t, 0.5, start, 2*time.Hour)
	h := history.New()
	h.RecordOverride(&a, start)

	calls := 0
	restored, err := history.FromRawValue(throughJSON(t, h.RawValue()),
		history.WithListener(func(*history.History) { calls++ }))
	require.NoError(t, err)
	assertSameEvents(t, h.Events(), restored.Events())

	restored.RecordOverride(&a, start.Add(time.Minute))
	assert.Equal(t, int64(1), restored.ModificationCounter())
	assert.Zero(t, calls)

	// an early end at an arbitrary instant survives a reload too
	restored.CancelActiveOverride(start.Add(30*time.Minute + 987*time.Nanosecond))
	again, err := history.FromRawValue(throughJSON(t, restored.RawValue()))
	require.NoError(t, err)
	assertSameEvents(t, restored.Events(), again.Events())
}

func TestHistory_RawValueKeepsTaintedLog(t *testing.T) {
	h, _ := overlappingHistory(t)
	require.NotNil(t, recoverViolation(func() {
		h.OverridesReflectingEnabledDuration(at(10))
	}))

	restored, err := history.FromRawValue(throughJSON(t, h.RawValue()))
	require.NoError(t, err)
	assertSameEvents(t, h.TaintedEventLog(), restored.TaintedEventLog())
}

func TestQueryAnchor_RawValue(t *testing.T) {
	anchor := history.QueryAnchor{ModificationCounter: 42}
	decoded, err := history.QueryAnchorFromRawValue(throughJSON(t, anchor.RawValue()))
	require.NoError(t, err)
	assert.Equal(t, anchor, decoded)

	_, err = history.QueryAnchorFromRawValue(rawvalue.Map{"modificationCounter": 1.5})
	assert.True(t, apperrors.IsDecoding(err))
	_, err = history.QueryAnchorFromRawValue(rawvalue.Map{})
	assert.True(t, apperrors.IsDecoding(err))
}

func TestFromRawValue_Malformed(t *testing.T) {
	h := history.New()
	a := newOverride(t, 0.5, at(8), 4*time.Hour)
	h.RecordOverride(&a, at(8))

	cases := map[string]func(rawvalue.Map){
		"missing events":  func(m rawvalue.Map) { delete(m, "recentEvents") },
		"missing counter": func(m rawvalue.Map) { delete(m, "modificationCounter") },
		"events not list": func(m rawvalue.Map) { m["recentEvents"] = "none" },
		"bad event": func(m rawvalue.Map) {
			m["recentEvents"] = []any{map[string]any{"modificationCounter": 0.0}}
		},
		"bad override": func(m rawvalue.Map) {
			m["recentEvents"] = []any{map[string]any{"modificationCounter": 0.0, "override": map[string]any{}}}
		},
	}

	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			raw := throughJSON(t, h.RawValue())
			corrupt(raw)
			_, err := history.FromRawValue(raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsDecoding(err), "got %v", err)
		})
	}
}

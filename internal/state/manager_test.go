package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

func TestManager_UserState(t *testing.T) {
	m := state.NewManager()

	assert.Equal(t, state.None, m.GetUserState(1))
	m.SetUserState(1, state.WaitingForScaleFactor)
	assert.Equal(t, state.WaitingForScaleFactor, m.GetUserState(1))
	assert.Equal(t, state.None, m.GetUserState(2))

	m.ClearUserState(1)
	assert.Equal(t, state.None, m.GetUserState(1))
}

func TestManager_TempData(t *testing.T) {
	m := state.NewManager()

	_, ok := m.GetTempData(1, "factor")
	assert.False(t, ok)

	m.SetTempData(1, "factor", 0.8)
	v, ok := m.GetTempData(1, "factor")
	require.True(t, ok)
	assert.Equal(t, 0.8, v)

	m.ClearTempData(1)
	_, ok = m.GetTempData(1, "factor")
	assert.False(t, ok)
}

func TestManager_Anchors(t *testing.T) {
	m := state.NewManager()
	ctx := context.Background()

	anchor, err := m.GetAnchor(ctx, 1, "pump")
	require.NoError(t, err)
	assert.Nil(t, anchor)

	require.NoError(t, m.SetAnchor(ctx, 1, "pump", history.QueryAnchor{ModificationCounter: 5}))

	anchor, err = m.GetAnchor(ctx, 1, "pump")
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, int64(5), anchor.ModificationCounter)

	// anchors are per client
	other, err := m.GetAnchor(ctx, 1, "watch")
	require.NoError(t, err)
	assert.Nil(t, other)
}

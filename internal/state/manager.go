package state

import (
	"context"
	"sync"

	"github.com/vladimiradmaev/therapy-overrides/internal/history"
)

// User states constants
const (
	None                    = "none"
	WaitingForScaleFactor   = "waiting_for_scale_factor"
	WaitingForDuration      = "waiting_for_duration"
	WaitingForScheduleEntry = "waiting_for_schedule_entry"
	WaitingForPresetName    = "waiting_for_preset_name"
	WaitingForTimeZone      = "waiting_for_time_zone"
)

// StateManager tracks a user's position in a multi-step bot dialog
type StateManager interface {
	SetUserState(userID int64, state string)
	GetUserState(userID int64) string
	ClearUserState(userID int64)
	SetTempData(userID int64, key string, value interface{})
	GetTempData(userID int64, key string) (interface{}, bool)
	ClearTempData(userID int64)
}

type anchorKey struct {
	userID   int64
	clientID string
}

// Manager manages user states, temporary data and sync anchors in memory
type Manager struct {
	userStates map[int64]string
	tempData   map[int64]map[string]interface{}
	anchors    map[anchorKey]history.QueryAnchor
	mu         sync.RWMutex
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{
		userStates: make(map[int64]string),
		tempData:   make(map[int64]map[string]interface{}),
		anchors:    make(map[anchorKey]history.QueryAnchor),
	}
}

// SetUserState sets the state for a user
func (m *Manager) SetUserState(userID int64, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userStates[userID] = state
}

// GetUserState gets the state for a user
func (m *Manager) GetUserState(userID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.userStates[userID]
	if !exists {
		return None
	}
	return state
}

// ClearUserState clears the state for a user
func (m *Manager) ClearUserState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userStates, userID)
}

// SetTempData sets temporary data for a user
func (m *Manager) SetTempData(userID int64, key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tempData[userID] == nil {
		m.tempData[userID] = make(map[string]interface{})
	}
	m.tempData[userID][key] = value
}

// GetTempData gets temporary data for a user
func (m *Manager) GetTempData(userID int64, key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userData, exists := m.tempData[userID]
	if !exists {
		return nil, false
	}
	value, exists := userData[key]
	return value, exists
}

// ClearTempData clears all temporary data for a user
func (m *Manager) ClearTempData(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tempData, userID)
}

// GetAnchor returns the client's last anchor, or nil if it never synced
func (m *Manager) GetAnchor(_ context.Context, userID int64, clientID string) (*history.QueryAnchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	anchor, exists := m.anchors[anchorKey{userID, clientID}]
	if !exists {
		return nil, nil
	}
	return &anchor, nil
}

// SetAnchor stores the client's anchor
func (m *Manager) SetAnchor(_ context.Context, userID int64, clientID string, anchor history.QueryAnchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[anchorKey{userID, clientID}] = anchor
	return nil
}

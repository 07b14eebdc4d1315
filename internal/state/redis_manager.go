package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
)

// dialog state expires so abandoned conversations clean themselves up
const stateTTL = 24 * time.Hour

// RedisManager manages user states and sync anchors using Redis
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager creates a new Redis-based state manager
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisManagerWithClient(client), nil
}

// NewRedisManagerWithClient wraps an already configured client
func NewRedisManagerWithClient(client *redis.Client) *RedisManager {
	return &RedisManager{client: client}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("user:%d:state", userID)
}

func tempKey(userID int64) string {
	return fmt.Sprintf("user:%d:temp", userID)
}

func anchorRedisKey(userID int64, clientID string) string {
	return fmt.Sprintf("user:%d:anchor:%s", userID, clientID)
}

// SetUserState sets the state for a user with TTL
func (m *RedisManager) SetUserState(userID int64, state string) {
	if err := m.client.Set(context.Background(), stateKey(userID), state, stateTTL).Err(); err != nil {
		logger.Warn("Failed to store user state", "user_id", userID, "error", err)
	}
}

// GetUserState gets the state for a user
func (m *RedisManager) GetUserState(userID int64) string {
	result := m.client.Get(context.Background(), stateKey(userID))
	if result.Err() == redis.Nil {
		return None
	}
	if result.Err() != nil {
		logger.Warn("Failed to read user state", "user_id", userID, "error", result.Err())
		return None
	}
	return result.Val()
}

// ClearUserState clears the state for a user
func (m *RedisManager) ClearUserState(userID int64) {
	m.client.Del(context.Background(), stateKey(userID))
}

// SetTempData sets temporary data for a user
func (m *RedisManager) SetTempData(userID int64, key string, value interface{}) {
	tempData := m.getTempDataMap(userID)
	if tempData == nil {
		tempData = make(map[string]interface{})
	}
	tempData[key] = value
	m.saveTempDataMap(userID, tempData)
}

// GetTempData gets temporary data for a user. Values come back JSON-decoded,
// so numbers are float64.
func (m *RedisManager) GetTempData(userID int64, key string) (interface{}, bool) {
	tempData := m.getTempDataMap(userID)
	if tempData == nil {
		return nil, false
	}
	value, exists := tempData[key]
	return value, exists
}

// ClearTempData clears all temporary data for a user
func (m *RedisManager) ClearTempData(userID int64) {
	m.client.Del(context.Background(), tempKey(userID))
}

// GetAnchor returns the client's last anchor, or nil if it never synced
func (m *RedisManager) GetAnchor(ctx context.Context, userID int64, clientID string) (*history.QueryAnchor, error) {
	counter, err := m.client.Get(ctx, anchorRedisKey(userID, clientID)).Int64()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync anchor: %w", err)
	}
	return &history.QueryAnchor{ModificationCounter: counter}, nil
}

// SetAnchor stores the client's anchor without expiry
func (m *RedisManager) SetAnchor(ctx context.Context, userID int64, clientID string, anchor history.QueryAnchor) error {
	if err := m.client.Set(ctx, anchorRedisKey(userID, clientID), anchor.ModificationCounter, 0).Err(); err != nil {
		return fmt.Errorf("failed to store sync anchor: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func (m *RedisManager) getTempDataMap(userID int64) map[string]interface{} {
	result := m.client.Get(context.Background(), tempKey(userID))
	if result.Err() != nil {
		return nil
	}

	var tempData map[string]interface{}
	if err := json.Unmarshal([]byte(result.Val()), &tempData); err != nil {
		return nil
	}
	return tempData
}

func (m *RedisManager) saveTempDataMap(userID int64, tempData map[string]interface{}) {
	data, err := json.Marshal(tempData)
	if err != nil {
		return
	}
	m.client.Set(context.Background(), tempKey(userID), data, stateTTL)
}

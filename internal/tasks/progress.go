package tasks

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const progressKeyPrefix = "musictransfer:progress:"

// ProgressStore holds the latest [ProgressUpdate] of each running task.
//
// Set ignores updates whose Current is lower than the stored value.
type ProgressStore interface {
	Set(ctx context.Context, taskID string, update ProgressUpdate) error
	Get(ctx context.Context, taskID string) (ProgressUpdate, bool, error)
}

var (
	_ ProgressStore = (*RedisProgressStore)(nil)
	_ ProgressStore = (*MemoryProgressStore)(nil)
)

// KEYS[1] progress hash
// ARGV state, current, total, status, ttl seconds
var setProgressScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'current')
if stored and tonumber(ARGV[2]) < tonumber(stored) then
	return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[1], 'current', ARGV[2], 'total', ARGV[3], 'status', ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisProgressStore keeps progress in a Redis hash per task.
type RedisProgressStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisProgressStore creates a store whose entries expire after ttl.
func NewRedisProgressStore(client redis.UniversalClient, ttl time.Duration) *RedisProgressStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisProgressStore{client: client, ttl: ttl}
}

func (s *RedisProgressStore) Set(ctx context.Context, taskID string, update ProgressUpdate) error {
	args := []any{
		string(update.State),
		strconv.FormatFloat(update.Current, 'f', -1, 64),
		update.Total,
		update.Status,
		int(s.ttl.Seconds()),
	}
	if err := setProgressScript.Run(ctx, s.client, []string{progressKeyPrefix + taskID}, args...).Err(); err != nil {
		return fmt.Errorf("failed to set progress for %s: %w", taskID, err)
	}
	return nil
}

func (s *RedisProgressStore) Get(ctx context.Context, taskID string) (ProgressUpdate, bool, error) {
	fields, err := s.client.HGetAll(ctx, progressKeyPrefix+taskID).Result()
	if err != nil {
		return ProgressUpdate{}, false, fmt.Errorf("failed to get progress for %s: %w", taskID, err)
	}
	if len(fields) == 0 {
		return ProgressUpdate{}, false, nil
	}

	current, err := strconv.ParseFloat(fields["current"], 64)
	if err != nil {
		return ProgressUpdate{}, false, fmt.Errorf("corrupt progress for %s: %w", taskID, err)
	}
	total, err := strconv.Atoi(fields["total"])
	if err != nil {
		return ProgressUpdate{}, false, fmt.Errorf("corrupt progress for %s: %w", taskID, err)
	}

	return ProgressUpdate{
		State:   State(fields["state"]),
		Current: current,
		Total:   total,
		Status:  fields["status"],
	}, true, nil
}

// MemoryProgressStore is a process-local [ProgressStore].
type MemoryProgressStore struct {
	mu      sync.RWMutex
	updates map[string]ProgressUpdate
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{updates: make(map[string]ProgressUpdate)}
}

func (s *MemoryProgressStore) Set(_ context.Context, taskID string, update ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.updates[taskID]; ok && update.Current < stored.Current {
		return nil
	}
	s.updates[taskID] = update
	return nil
}

func (s *MemoryProgressStore) Get(_ context.Context, taskID string) (ProgressUpdate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	update, ok := s.updates[taskID]
	return update, ok, nil
}

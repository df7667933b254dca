package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task asks for one analysis run of a recording.
type Task struct {
	ID          string    `json:"id"`
	RecordingID string    `json:"recording_id"`
	UserID      string    `json:"user_id"`
	NotBefore   time.Time `json:"not_before"`
}

// Queue is an at-least-once delayed task queue. Claim hands each task to
// exactly one caller and returns nil when nothing is due.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	Claim(ctx context.Context, now time.Time) (*Task, error)
}

type MemoryQueue struct {
	mu    sync.Mutex
	tasks []Task
}

func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	sort.SliceStable(q.tasks, func(i, j int) bool { return q.tasks[i].NotBefore.Before(q.tasks[j].NotBefore) })
	return nil
}

func (q *MemoryQueue) Claim(ctx context.Context, now time.Time) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 || q.tasks[0].NotBefore.After(now) {
		return nil, nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return &t, nil
}

func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RedisQueue stores tasks in a sorted set scored by NotBefore (unix ms).
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: "callintel:analysis:queue"}
}

var claimScript = redis.NewScript(`
-- KEYS[1] = queue zset
-- ARGV[1] = now_ms
-- Pops the earliest due member, or returns false.
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #items == 0 then
  return false
end
redis.call('ZREM', KEYS[1], items[1])
return items[1]
`)

func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal analysis task: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(t.NotBefore.UnixMilli()),
		Member: string(raw),
	}).Err()
}

func (q *RedisQueue) Claim(ctx context.Context, now time.Time) (*Task, error) {
	raw, err := claimScript.Run(ctx, q.rdb, []string{q.key}, strconv.FormatInt(now.UnixMilli(), 10)).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode analysis task: %w", err)
	}
	return &t, nil
}

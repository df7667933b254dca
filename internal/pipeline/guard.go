package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"callintel/pkg/logger"
	"callintel/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrPipelineActive = errors.New("pipeline: recording already has an active pipeline")

// Guard keeps each recording to one active pipeline.
type Guard interface {
	// Acquire returns ErrPipelineActive when another pipeline holds recordingID.
	Acquire(ctx context.Context, recordingID string) (release func(), err error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard { return &MemoryGuard{held: map[string]struct{}{}} }

func (g *MemoryGuard) Acquire(ctx context.Context, recordingID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[recordingID]; ok {
		return nil, ErrPipelineActive
	}
	g.held[recordingID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, recordingID)
			g.mu.Unlock()
		})
	}, nil
}

// RedisGuard holds a Redis lease per recording so API replicas share the guard.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, log: logger.OrDefault(log)}
}

func (g *RedisGuard) key(recordingID string) string {
	return "callintel:pipeline:" + recordingID
}

func (g *RedisGuard) Acquire(ctx context.Context, recordingID string) (func(), error) {
	owner := uuid.NewString()
	key := g.key(recordingID)

	ok, err := utils.AcquireLease(ctx, g.rdb, key, owner, g.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPipelineActive
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may be gone by now.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := utils.ReleaseLease(rctx, g.rdb, key, owner); err != nil {
				g.log.Warn("release pipeline lease failed", "recording_id", recordingID, "err", err)
			}
		})
	}, nil
}

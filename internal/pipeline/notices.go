package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callintel/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NoticeKind identifies a user-facing pipeline notice.
type NoticeKind string

const (
	NoticeUploadInProgress    NoticeKind = "upload_in_progress"
	NoticeTranscriptionFailed NoticeKind = "transcription_failed"
	NoticeUploadStalled       NoticeKind = "upload_stalled"
)

var noticeMessages = map[NoticeKind]string{
	NoticeUploadInProgress:    "Upload in progress. Transcription will start once the audio arrives.",
	NoticeTranscriptionFailed: "Transcription could not be started.",
	NoticeUploadStalled:       "The audio upload did not arrive. Retry the recording once it finishes uploading.",
}

type Notice struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	RecordingID string     `json:"recording_id"`
	Kind        NoticeKind `json:"kind"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewNotice(userID, recordingID string, kind NoticeKind) Notice {
	return Notice{
		ID:          uuid.NewString(),
		UserID:      userID,
		RecordingID: recordingID,
		Kind:        kind,
		Message:     noticeMessages[kind],
		CreatedAt:   time.Now().UTC(),
	}
}

// Notifier delivers notices. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Inbox is a Notifier the owning user can drain.
type Inbox interface {
	Notifier
	Drain(ctx context.Context, userID string) ([]Notice, error)
}

// maxNotices caps each user's inbox; older notices are dropped first.
const maxNotices = 100

type MemoryInbox struct {
	mu    sync.Mutex
	byUsr map[string][]Notice
}

func NewMemoryInbox() *MemoryInbox { return &MemoryInbox{byUsr: map[string][]Notice{}} }

func (b *MemoryInbox) Notify(ctx context.Context, n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := append(b.byUsr[n.UserID], n)
	if len(q) > maxNotices {
		q = q[len(q)-maxNotices:]
	}
	b.byUsr[n.UserID] = q
}

func (b *MemoryInbox) Drain(ctx context.Context, userID string) ([]Notice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.byUsr[userID]
	delete(b.byUsr, userID)
	if out == nil {
		out = []Notice{}
	}
	return out, nil
}

// Peek returns the user's notices without draining them.
func (b *MemoryInbox) Peek(userID string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.byUsr[userID]...)
}

// RedisInbox keeps one capped list per user.
type RedisInbox struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisInbox(rdb *redis.Client, log *slog.Logger) *RedisInbox {
	return &RedisInbox{rdb: rdb, ttl: 24 * time.Hour, log: logger.OrDefault(log)}
}

func (b *RedisInbox) key(userID string) string { return "callintel:notices:" + userID }

func (b *RedisInbox) Notify(ctx context.Context, n Notice) {
	raw, err := json.Marshal(n)
	if err != nil {
		b.log.Error("marshal notice failed", "err", err)
		return
	}
	key := b.key(n.UserID)
	pipe := b.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -maxNotices, -1)
	pipe.Expire(ctx, key, b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		b.log.Warn("store notice failed", "user_id", n.UserID, "kind", n.Kind, "err", err)
	}
}

func (b *RedisInbox) Drain(ctx context.Context, userID string) ([]Notice, error) {
	key := b.key(userID)
	pipe := b.rdb.TxPipeline()
	rng := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain notices: %w", err)
	}
	out := make([]Notice, 0, len(rng.Val()))
	for _, raw := range rng.Val() {
		var n Notice
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			b.log.Warn("skip malformed notice", "user_id", userID, "err", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Trigger enqueues analysis a short delay after a transcript was persisted so
// the write settles before the worker re-reads the row.
type Trigger struct {
	q     Queue
	delay time.Duration
	clock func() time.Time
}

func NewTrigger(q Queue, delay time.Duration) *Trigger {
	return &Trigger{q: q, delay: delay, clock: time.Now}
}

func (t *Trigger) Schedule(ctx context.Context, recordingID, userID string) error {
	return t.q.Enqueue(ctx, Task{
		ID:          uuid.NewString(),
		RecordingID: recordingID,
		UserID:      userID,
		NotBefore:   t.clock().Add(t.delay).UTC(),
	})
}

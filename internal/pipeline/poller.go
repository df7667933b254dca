package pipeline

import (
	"context"
	"log/slog"
	"time"

	"callintel/internal/chunkstore"
	"callintel/internal/recordings"
	"callintel/pkg/logger"
)

// ChunkCounter is the read side of the chunk store the poller needs.
type ChunkCounter interface {
	UploadedCount(ctx context.Context, recordingID string) (int, error)
	RecordingMeta(ctx context.Context, recordingID string) (chunkstore.Meta, error)
}

// Readiness is one observation of a recording's chunk set.
type Readiness struct {
	RecordingID string `json:"recording_id"`
	Expected    int    `json:"expected_chunks"`
	Uploaded    int    `json:"uploaded_chunks"`
	Complete    bool   `json:"complete"`
	Ready       bool   `json:"ready"`
	// TimedOut is set by Wait when the ceiling elapsed before Ready.
	TimedOut bool `json:"timed_out,omitempty"`
}

type Poller struct {
	chunks   ChunkCounter
	interval time.Duration
	ceiling  time.Duration
	log      *slog.Logger
}

func NewPoller(chunks ChunkCounter, interval, ceiling time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	if ceiling < interval {
		ceiling = interval
	}
	return &Poller{chunks: chunks, interval: interval, ceiling: ceiling, log: logger.OrDefault(log)}
}

// Check reads the expected count, completion flag and uploaded count once.
// Nothing is cached between calls; chunks keep landing while we poll.
func (p *Poller) Check(ctx context.Context, recordingID string) (Readiness, error) {
	meta, err := p.chunks.RecordingMeta(ctx, recordingID)
	if err != nil {
		return Readiness{RecordingID: recordingID}, err
	}
	uploaded, err := p.chunks.UploadedCount(ctx, recordingID)
	if err != nil {
		return Readiness{RecordingID: recordingID}, err
	}
	return Readiness{
		RecordingID: recordingID,
		Expected:    meta.ExpectedChunks,
		Uploaded:    uploaded,
		Complete:    meta.Complete,
		Ready:       recordings.ReadyForTranscription(meta.ExpectedChunks, uploaded, meta.Complete),
	}, nil
}

// Wait polls until the recording is ready or the ceiling elapses. Failed ticks
// are logged and skipped. The only error returned is ctx's.
func (p *Poller) Wait(ctx context.Context, recordingID string) (Readiness, error) {
	deadline := time.Now().Add(p.ceiling)
	last := Readiness{RecordingID: recordingID}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for tick := 1; ; tick++ {
		r, err := p.Check(ctx, recordingID)
		switch {
		case err != nil && ctx.Err() != nil:
			return last, ctx.Err()
		case err != nil:
			p.log.Debug("readiness tick failed", "recording_id", recordingID, "tick", tick, "err", err)
		default:
			last = r
			if r.Ready {
				return r, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			last.TimedOut = true
			return last, nil
		}
		timer.Reset(min(p.interval, remaining))
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}
	}
}

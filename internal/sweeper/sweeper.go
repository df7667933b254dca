package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callintel/internal/chunkstore"
	"callintel/internal/pipeline"
	"callintel/internal/recordings"
	"callintel/internal/transcription"
	"callintel/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StaleLister finds recordings that stopped moving.
type StaleLister interface {
	ListStale(ctx context.Context, status recordings.Status, cutoff time.Time, limit int) ([]recordings.CallRecording, error)
}

// ChunkActivity reports the upload state of a chunked recording. Chunk
// writes do not touch the recording row, so its updated_at alone cannot
// tell a stuck pipeline from a call that is still being recorded.
type ChunkActivity interface {
	RecordingMeta(ctx context.Context, recordingID string) (chunkstore.Meta, error)
}

// Redriver restarts a recording's pipeline. An empty actor marks a system retry.
type Redriver interface {
	Retry(ctx context.Context, recordingID, actorUserID string) error
}

// Sweeper re-drives recordings stuck in transcribing, e.g. after a restart
// interrupted their pipeline.
type Sweeper struct {
	recs       StaleLister
	chunks     ChunkActivity
	pipe       Redriver
	stuckAfter time.Duration
	batch      int
	clock      func() time.Time
	log        *slog.Logger

	cron *cron.Cron
}

func New(recs StaleLister, chunks ChunkActivity, pipe Redriver, stuckAfter time.Duration, log *slog.Logger) *Sweeper {
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	return &Sweeper{
		recs:       recs,
		chunks:     chunks,
		pipe:       pipe,
		stuckAfter: stuckAfter,
		batch:      100,
		clock:      time.Now,
		log:        logger.OrDefault(log),
	}
}

// SweepOnce re-drives one batch and returns how many runs it started.
// Recordings with a live pipeline, and open uploads that received a chunk
// since the cutoff, are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.stuckAfter)
	stale, err := s.recs.ListStale(ctx, recordings.StatusTranscribing, cutoff, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list stale recordings: %w", err)
	}

	started := 0
	for _, rec := range stale {
		recording, err := s.stillRecording(ctx, rec.ID, cutoff)
		if err != nil {
			s.log.Warn("read upload state", "recording_id", rec.ID, "err", err)
			continue
		}
		if recording {
			s.log.Debug("upload still receiving chunks", "recording_id", rec.ID)
			continue
		}

		err = s.pipe.Retry(ctx, rec.ID, "")
		switch {
		case err == nil:
			started++
		case pipeline.IsBusy(err):
			s.log.Debug("stale recording already running", "recording_id", rec.ID)
		case errors.Is(err, recordings.ErrNotFound):
			// deleted since listing
		case errors.Is(err, transcription.ErrNoAudioSource):
			s.log.Info("stale recording had no audio, marked failed", "recording_id", rec.ID)
		default:
			s.log.Warn("re-drive failed", "recording_id", rec.ID, "err", err)
		}
	}
	if len(stale) > 0 {
		s.log.Info("sweep finished", "stale", len(stale), "redriven", started)
	}
	return started, nil
}

// stillRecording reports whether an open upload saw a chunk after cutoff.
// Recordings that were never chunked are not recording.
func (s *Sweeper) stillRecording(ctx context.Context, recordingID string, cutoff time.Time) (bool, error) {
	if s.chunks == nil {
		return false, nil
	}
	meta, err := s.chunks.RecordingMeta(ctx, recordingID)
	switch {
	case errors.Is(err, chunkstore.ErrRecordingNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return !meta.Complete && meta.LastChunkAt.After(cutoff), nil
}

// Start runs SweepOnce on schedule (cron spec or "@every 5m").
// Overlapping runs are skipped.
func (s *Sweeper) Start(schedule string) error {
	cl := cronLogger{s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.SweepOnce(ctx); err != nil {
			s.log.Error("sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

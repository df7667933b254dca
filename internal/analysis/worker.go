package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"callintel/internal/recordings"
	"callintel/pkg/logger"
)

// RecordingReader re-reads the full recording before analysis.
type RecordingReader interface {
	Get(ctx context.Context, id string) (recordings.CallRecording, error)
}

// Worker drains the analysis queue. A failed analysis is logged and dropped:
// it is never retried and never touches the recording's status.
type Worker struct {
	q        Queue
	recs     RecordingReader
	analyzer Analyzer

	concurrency  int
	pollInterval time.Duration
	clock        func() time.Time
	log          *slog.Logger
}

func NewWorker(q Queue, recs RecordingReader, analyzer Analyzer, concurrency int, pollInterval time.Duration, log *slog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		q:            q,
		recs:         recs,
		analyzer:     analyzer,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		clock:        time.Now,
		log:          logger.OrDefault(log),
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("starting analysis worker",
		"concurrency", w.concurrency,
		"poll_interval", w.pollInterval,
	)

	var wg sync.WaitGroup
	wg.Add(w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		go func(idx int) {
			defer wg.Done()
			w.loop(ctx, idx)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, idx int) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		claimed, err := w.ProcessNext(ctx)
		if err != nil {
			w.log.Error("failed to claim analysis task", "worker", idx, "err", err)
		}
		if claimed {
			timer.Reset(0)
			continue
		}
		timer.Reset(w.pollInterval)
	}
}

// ProcessNext claims at most one due task and runs it. It reports whether a
// task was claimed; analysis failures are logged, not returned.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	t, err := w.q.Claim(ctx, w.clock())
	if err != nil || t == nil {
		return false, err
	}
	w.process(ctx, *t)
	return true, nil
}

func (w *Worker) process(ctx context.Context, t Task) {
	log := w.log.With("task_id", t.ID, "recording_id", t.RecordingID)

	rec, err := w.recs.Get(ctx, t.RecordingID)
	if err != nil {
		log.Error("load recording for analysis failed", "err", err)
		return
	}
	if rec.Outcome != recordings.OutcomeSucceeded {
		log.Info("skip analysis, no successful transcript", "outcome", rec.Outcome)
		return
	}

	req := Request{
		RecordingID: rec.ID,
		UserID:      rec.UserID,
		SubjectName: rec.CustomerName,
		OwnerName:   rec.OwnerName,
		Transcript:  FormatTranscript(rec.Transcript, rec.Segments, rec.SpeakerMapping),
	}
	if err := w.analyzer.Analyze(ctx, req); err != nil {
		log.Error("analysis failed", "err", err)
		return
	}
	log.Info("analysis finished")
}

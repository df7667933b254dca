package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callintel/internal/audit"
	"callintel/internal/chunkstore"
	"callintel/internal/recordings"
	"callintel/internal/transcription"
	"callintel/pkg/logger"
)

// Auditor records pipeline milestones. audit.Service satisfies it.
type Auditor interface {
	LogRecording(ctx context.Context, organizationID, recordingID, actorUserID string, t audit.EventType, message string, metadata map[string]any) error
}

// AnalysisScheduler queues a recording for analysis after its transcript landed.
type AnalysisScheduler interface {
	Schedule(ctx context.Context, recordingID, userID string) error
}

// Deps wires a Pipeline. Cache, Audit and Analysis are optional.
type Deps struct {
	Recordings  recordings.Store
	Chunks      ChunkCounter
	Transcriber transcription.Service
	Guard       Guard
	Notifier    Notifier

	Cache    CacheMirror
	Audit    Auditor
	Analysis AnalysisScheduler

	PollInterval time.Duration
	PollCeiling  time.Duration
	Retry        RetryPolicy

	Log *slog.Logger
}

// Pipeline runs readiness, transcription and persistence for recordings.
// Runs are detached from the request that started them and tracked so
// shutdown can wait for them.
type Pipeline struct {
	store    recordings.Store
	poller   *Poller
	invoker  *Invoker
	updater  *Updater
	guard    Guard
	notifier Notifier
	audit    Auditor
	analysis AnalysisScheduler
	retry    RetryPolicy
	log      *slog.Logger

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(d Deps) *Pipeline {
	log := logger.OrDefault(d.Log)
	guard := d.Guard
	if guard == nil {
		guard = NewMemoryGuard()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = NewMemoryInbox()
	}
	retry := d.Retry
	if retry.MaxAttempts <= 0 && retry.Backoff <= 0 {
		retry = DefaultRetryPolicy()
	}

	root, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:    d.Recordings,
		poller:   NewPoller(d.Chunks, d.PollInterval, d.PollCeiling, log),
		invoker:  NewInvoker(d.Transcriber),
		updater:  NewUpdater(d.Recordings, d.Cache, log),
		guard:    guard,
		notifier: notifier,
		audit:    d.Audit,
		analysis: d.Analysis,
		retry:    retry,
		log:      log,
		root:     root,
		cancel:   cancel,
	}
}

// Poller exposes the readiness poller for idempotent checks.
func (p *Pipeline) Poller() *Poller { return p.poller }

// Wait blocks until every tracked run has returned.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Shutdown cancels in-flight runs and waits for them, or for ctx.
// Interrupted recordings stay in transcribing for the sweeper to pick up.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) goTracked(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.root)
	}()
}

// HandleChunkedRecordingComplete starts the readiness-then-transcribe run for
// a chunked recording and returns immediately. It fails when the guard refuses
// (ErrPipelineActive, or a guard backend error) and with
// recordings.ErrInvalidTransition once the recording has completed; a finished
// recording is only re-run through Retry.
func (p *Pipeline) HandleChunkedRecordingComplete(ctx context.Context, recordingID string) error {
	release, err := p.guard.Acquire(ctx, recordingID)
	if err != nil {
		return err
	}
	// Read under the guard: a run that just finished has already written its status.
	rec, err := p.store.Get(ctx, recordingID)
	if err != nil {
		release()
		return err
	}
	if rec.Status.Terminal() {
		release()
		return recordings.ErrInvalidTransition
	}
	p.goTracked(func(ctx context.Context) {
		defer release()
		p.runChunked(ctx, recordingID)
	})
	return nil
}

// TranscribeUpload runs the single-blob path synchronously. Callers are
// already off the request path. audio may be nil when rec.AudioPath is set.
func (p *Pipeline) TranscribeUpload(ctx context.Context, rec recordings.CallRecording, audio []byte) {
	release, err := p.guard.Acquire(ctx, rec.ID)
	if err != nil {
		p.log.Warn("skip transcription, guard refused", "recording_id", rec.ID, "err", err)
		return
	}
	defer release()
	p.transcribe(ctx, rec, transcription.Source{
		RecordingID:  rec.ID,
		UserID:       rec.UserID,
		CustomerName: rec.CustomerName,
		StoragePath:  rec.AudioPath,
		Audio:        audio,
	}, false)
}

// Retry sends a recording back to transcribing and re-runs the matching path.
// actorUserID is empty for system-initiated retries.
func (p *Pipeline) Retry(ctx context.Context, recordingID, actorUserID string) error {
	rec, err := p.store.Get(ctx, recordingID)
	if err != nil {
		return err
	}
	if !rec.Status.CanRetry() {
		return recordings.ErrInvalidTransition
	}

	release, err := p.guard.Acquire(ctx, recordingID)
	if err != nil {
		return err
	}

	chunked, err := p.hasChunks(ctx, rec)
	if err != nil {
		release()
		return err
	}
	if !chunked && rec.AudioPath == "" {
		defer release()
		p.failWithoutAudio(ctx, rec, actorUserID)
		return transcription.ErrNoAudioSource
	}

	reset := recordings.Patch{
		Status:     recordings.StatusPtr(recordings.StatusTranscribing),
		Retry:      true,
		Outcome:    recordings.OutcomePtr(recordings.OutcomePending),
		Transcript: recordings.StringPtr(recordings.PendingTranscript),
	}
	if err := p.updater.Apply(ctx, rec, reset); err != nil {
		release()
		return fmt.Errorf("reset recording for retry: %w", err)
	}

	evt, msg := audit.EventManualRetry, "manual retry"
	if actorUserID == "" {
		evt, msg = audit.EventSweeperRedrive, "stuck recording re-driven"
	}
	p.auditf(ctx, rec, actorUserID, evt, msg, nil)

	p.goTracked(func(ctx context.Context) {
		defer release()
		if chunked {
			p.runChunked(ctx, rec.ID)
			return
		}
		p.transcribe(ctx, rec, transcription.Source{
			RecordingID:  rec.ID,
			UserID:       rec.UserID,
			CustomerName: rec.CustomerName,
			StoragePath:  rec.AudioPath,
		}, false)
	})
	return nil
}

// hasChunks reports whether rec was captured in chunks, completed or not.
func (p *Pipeline) hasChunks(ctx context.Context, rec recordings.CallRecording) (bool, error) {
	if rec.TotalChunks > 0 {
		return true, nil
	}
	r, err := p.poller.Check(ctx, rec.ID)
	switch {
	case errors.Is(err, chunkstore.ErrRecordingNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check chunks: %w", err)
	}
	return r.Expected > 0 || r.Uploaded > 0, nil
}

// failWithoutAudio settles a recording that has neither chunks nor stored
// audio. Nothing can be transcribed, so an unfinished row is marked failed
// and a finished one is left alone.
func (p *Pipeline) failWithoutAudio(ctx context.Context, rec recordings.CallRecording, actorUserID string) {
	p.log.Warn("retry refused, no audio source", "recording_id", rec.ID)
	if rec.Status.Terminal() {
		return
	}
	if err := p.updater.Apply(ctx, rec, FailedResult().Patch()); err != nil {
		return
	}
	p.auditf(ctx, rec, actorUserID, audit.EventTranscriptionFailed, "no audio source", nil)
}

func (p *Pipeline) runChunked(ctx context.Context, recordingID string) {
	log := p.log.With("recording_id", recordingID)

	rec, err := p.store.Get(ctx, recordingID)
	if err != nil {
		log.Error("load recording failed", "err", err)
		return
	}

	for attempt := 1; ; attempt++ {
		r, err := p.poller.Wait(ctx, recordingID)
		if err != nil {
			log.Info("readiness wait interrupted", "attempt", attempt, "err", err)
			return
		}
		if r.Ready {
			break
		}
		// Without the completion flag the recorder may still be sending.
		if r.Complete && r.Uploaded > 0 {
			log.Warn("readiness ceiling reached, transcribing partial upload",
				"attempt", attempt,
				"uploaded", r.Uploaded,
				"expected", r.Expected,
			)
			break
		}

		if !p.retry.Allows(attempt + 1) {
			p.markStalled(ctx, rec, attempt)
			return
		}
		p.notifier.Notify(ctx, NewNotice(rec.UserID, rec.ID, NoticeUploadInProgress))
		delay := p.retry.Delay(attempt)
		log.Info("upload not finished, rescheduling",
			"attempt", attempt,
			"backoff", delay,
			"uploaded", r.Uploaded,
			"complete", r.Complete,
		)
		if err := sleep(ctx, delay); err != nil {
			return
		}
	}

	p.transcribe(ctx, rec, transcription.Source{
		RecordingID:  rec.ID,
		UserID:       rec.UserID,
		CustomerName: rec.CustomerName,
		StoragePath:  rec.AudioPath,
		Chunked:      true,
	}, true)
}

func (p *Pipeline) markStalled(ctx context.Context, rec recordings.CallRecording, attempts int) {
	p.log.Warn("upload retries exhausted", "recording_id", rec.ID, "attempts", attempts)
	_ = p.updater.Apply(ctx, rec, recordings.Patch{Status: recordings.StatusPtr(recordings.StatusInProgress)})
	p.notifier.Notify(ctx, NewNotice(rec.UserID, rec.ID, NoticeUploadStalled))
	p.auditf(ctx, rec, "", audit.EventUploadStalled, "upload did not finish before retries ran out", map[string]any{
		"attempts": attempts,
	})
}

// transcribe invokes the function once and persists whatever came back.
func (p *Pipeline) transcribe(ctx context.Context, rec recordings.CallRecording, src transcription.Source, chunked bool) Result {
	log := p.log.With("recording_id", rec.ID)

	var res Result
	payload, err := transcription.BuildPayload(src)
	if err == nil {
		log.Info("invoking transcription", "variant", payload.Variant(), "encode_iterations", payload.EncodeIterations)
		var resp transcription.Response
		resp, err = p.invoker.Invoke(ctx, payload)
		if err == nil {
			res = SucceededResult(resp)
		}
	}

	if err != nil {
		log.Error("transcription failed", "err", err)
		res = FailedResult()
		if chunked {
			p.notifier.Notify(ctx, NewNotice(rec.UserID, rec.ID, NoticeTranscriptionFailed))
		}
		p.auditf(ctx, rec, "", audit.EventTranscriptionFailed, "transcription failed", map[string]any{
			"error":   err.Error(),
			"chunked": chunked,
		})
	} else {
		p.auditf(ctx, rec, "", audit.EventTranscriptionSucceeded, "transcript stored", map[string]any{
			"segments": len(res.Segments),
		})
	}

	persistErr := p.updater.Apply(ctx, rec, res.Patch())
	if res.Outcome == recordings.OutcomeSucceeded && persistErr == nil && p.analysis != nil {
		if err := p.analysis.Schedule(ctx, rec.ID, rec.UserID); err != nil {
			log.Error("schedule analysis failed", "err", err)
		}
	}
	return res
}

func (p *Pipeline) auditf(ctx context.Context, rec recordings.CallRecording, actor string, t audit.EventType, msg string, meta map[string]any) {
	if p.audit == nil {
		return
	}
	if err := p.audit.LogRecording(ctx, rec.OrganizationID, rec.ID, actor, t, msg, meta); err != nil {
		p.log.Warn("audit write failed", "recording_id", rec.ID, "type", t, "err", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsBusy reports whether err means a pipeline is already running for the recording.
func IsBusy(err error) bool { return errors.Is(err, ErrPipelineActive) }

package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"callintel/internal/audit"
	"callintel/internal/chunkstore"
	"callintel/internal/recordings"
	"callintel/internal/transcription"
	"callintel/pkg/logger"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls []transcription.Payload
	resp  transcription.Response
	err   error
	block chan struct{}
}

func (f *fakeTranscriber) Invoke(ctx context.Context, p transcription.Payload) (transcription.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.resp, f.err
}

func (f *fakeTranscriber) Calls() []transcription.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcription.Payload(nil), f.calls...)
}

type fakeScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *fakeScheduler) Schedule(ctx context.Context, recordingID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, recordingID)
	return nil
}

func (s *fakeScheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

type fakeMirror struct {
	mu      sync.Mutex
	patches []recordings.Patch
}

func (m *fakeMirror) Mirror(userID, recordingID string, p recordings.Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches = append(m.patches, p)
}

func (m *fakeMirror) Last() (recordings.Patch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.patches) == 0 {
		return recordings.Patch{}, false
	}
	return m.patches[len(m.patches)-1], true
}

type fixture struct {
	recs   *recordings.MemoryStore
	chunks *chunkstore.MemoryStore
	svc    *fakeTranscriber
	inbox  *MemoryInbox
	audit  *audit.MemoryRepo
	sched  *fakeScheduler
	mirror *fakeMirror
	p      *Pipeline
}

type fixtureOpts struct {
	interval time.Duration
	ceiling  time.Duration
	retry    RetryPolicy
}

func newFixture(t *testing.T, svc *fakeTranscriber, o fixtureOpts) *fixture {
	t.Helper()
	if o.interval == 0 {
		o.interval = 5 * time.Millisecond
	}
	if o.ceiling == 0 {
		o.ceiling = 40 * time.Millisecond
	}
	if o.retry.MaxAttempts == 0 {
		o.retry = RetryPolicy{MaxAttempts: 2, Backoff: 5 * time.Millisecond}
	}
	f := &fixture{
		recs:   recordings.NewMemoryStore(),
		chunks: chunkstore.NewMemoryStore(),
		svc:    svc,
		inbox:  NewMemoryInbox(),
		audit:  audit.NewMemoryRepo(),
		sched:  &fakeScheduler{},
		mirror: &fakeMirror{},
	}
	f.p = New(Deps{
		Recordings:   f.recs,
		Chunks:       f.chunks,
		Transcriber:  svc,
		Guard:        NewMemoryGuard(),
		Notifier:     f.inbox,
		Cache:        f.mirror,
		Audit:        audit.NewService(f.audit),
		Analysis:     f.sched,
		PollInterval: o.interval,
		PollCeiling:  o.ceiling,
		Retry:        o.retry,
		Log:          logger.Discard(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.p.Shutdown(ctx)
	})
	return f
}

// newRecording creates a chunked recording with the given chunk state.
func (f *fixture) newRecording(t *testing.T, total, uploaded int, complete bool) recordings.CallRecording {
	t.Helper()
	ctx := context.Background()
	rec, err := f.recs.Upsert(ctx, recordings.CallRecording{
		OrganizationID: "org1",
		UserID:         "u1",
		CustomerName:   "Acme",
		TotalChunks:    total,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f.chunks.Track(rec.ID)
	for seq := 0; seq < uploaded; seq++ {
		f.putChunk(t, rec.ID, seq)
	}
	if complete {
		if err := f.chunks.MarkComplete(ctx, rec.ID, total); err != nil {
			t.Fatalf("mark complete: %v", err)
		}
	}
	return rec
}

func (f *fixture) putChunk(t *testing.T, recordingID string, seq int) {
	t.Helper()
	_, err := f.chunks.PutChunk(context.Background(), chunkstore.AudioChunk{
		RecordingID: recordingID,
		Sequence:    seq,
		Status:      chunkstore.ChunkStatusUploaded,
	})
	if err != nil {
		t.Fatalf("put chunk: %v", err)
	}
}

func (f *fixture) get(t *testing.T, id string) recordings.CallRecording {
	t.Helper()
	rec, err := f.recs.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return rec
}

func kinds(ns []Notice) []NoticeKind {
	out := make([]NoticeKind, len(ns))
	for i, n := range ns {
		out[i] = n.Kind
	}
	return out
}

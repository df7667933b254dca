package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callintel/internal/chunkstore"
	"callintel/internal/pipeline"
	"callintel/internal/recordings"
	"callintel/pkg/logger"
)

type fakeRedriver struct {
	mu    sync.Mutex
	ids   []string
	busy  map[string]bool
	actor []string
}

func (f *fakeRedriver) Retry(ctx context.Context, recordingID, actorUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[recordingID] {
		return pipeline.ErrPipelineActive
	}
	f.ids = append(f.ids, recordingID)
	f.actor = append(f.actor, actorUserID)
	return nil
}

func (f *fakeRedriver) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func seed(t *testing.T, store *recordings.MemoryStore, updatedAt time.Time, status recordings.Status) string {
	t.Helper()
	rec, err := store.Upsert(context.Background(), recordings.CallRecording{OrganizationID: "o", UserID: "u"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if status != recordings.StatusTranscribing {
		if err := store.Update(context.Background(), rec.ID, recordings.Patch{Status: recordings.StatusPtr(status)}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	store.SetUpdatedAt(rec.ID, updatedAt)
	return rec.ID
}

func TestSweepOnce_RedrivesOnlyStuckTranscribing(t *testing.T) {
	store := recordings.NewMemoryStore()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	stuck := seed(t, store, now.Add(-time.Hour), recordings.StatusTranscribing)
	seed(t, store, now.Add(-time.Minute), recordings.StatusTranscribing)
	seed(t, store, now.Add(-time.Hour), recordings.StatusCompleted)

	rd := &fakeRedriver{}
	s := New(store, chunkstore.NewMemoryStore(), rd, 15*time.Minute, logger.Discard())
	s.clock = func() time.Time { return now }

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 re-drive, got %d", n)
	}
	if ids := rd.IDs(); len(ids) != 1 || ids[0] != stuck {
		t.Fatalf("unexpected re-drives %v", ids)
	}
	if rd.actor[0] != "" {
		t.Fatalf("sweeper retries carry no actor")
	}
}

func TestSweepOnce_SkipsBusyRecordings(t *testing.T) {
	store := recordings.NewMemoryStore()
	now := time.Now()
	id := seed(t, store, now.Add(-time.Hour), recordings.StatusTranscribing)

	rd := &fakeRedriver{busy: map[string]bool{id: true}}
	s := New(store, chunkstore.NewMemoryStore(), rd, time.Minute, logger.Discard())

	n, err := s.SweepOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no re-drives, got %d %v", n, err)
	}
}

func TestSweepOnce_LeavesOpenUploadWithRecentChunks(t *testing.T) {
	store := recordings.NewMemoryStore()
	chunks := chunkstore.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	// The row has not moved for an hour but the recorder is still sending chunks.
	id := seed(t, store, now.Add(-time.Hour), recordings.StatusTranscribing)
	chunks.Track(id)
	for seq := 0; seq < 2; seq++ {
		if _, err := chunks.PutChunk(ctx, chunkstore.AudioChunk{
			RecordingID: id, Sequence: seq, Status: chunkstore.ChunkStatusUploaded,
		}); err != nil {
			t.Fatalf("put chunk: %v", err)
		}
	}

	rd := &fakeRedriver{}
	s := New(store, chunks, rd, 15*time.Minute, logger.Discard())
	s.clock = func() time.Time { return now }

	n, err := s.SweepOnce(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected open upload to be left alone, got %d %v", n, err)
	}

	// Once chunks stop arriving the upload counts as abandoned.
	s.clock = func() time.Time { return now.Add(time.Hour) }
	n, err = s.SweepOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected abandoned upload to be re-driven, got %d %v", n, err)
	}
	if ids := rd.IDs(); len(ids) != 1 || ids[0] != id {
		t.Fatalf("unexpected re-drives %v", ids)
	}
}

func TestSweepOnce_RedrivesCompletedUploadWithRecentChunks(t *testing.T) {
	store := recordings.NewMemoryStore()
	chunks := chunkstore.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	id := seed(t, store, now.Add(-time.Hour), recordings.StatusTranscribing)
	chunks.Track(id)
	if _, err := chunks.PutChunk(ctx, chunkstore.AudioChunk{
		RecordingID: id, Sequence: 0, Status: chunkstore.ChunkStatusUploaded,
	}); err != nil {
		t.Fatalf("put chunk: %v", err)
	}
	if err := chunks.MarkComplete(ctx, id, 1); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	rd := &fakeRedriver{}
	s := New(store, chunks, rd, 15*time.Minute, logger.Discard())
	s.clock = func() time.Time { return now }

	if n, err := s.SweepOnce(ctx); err != nil || n != 1 {
		t.Fatalf("expected completed upload to be re-driven, got %d %v", n, err)
	}
}

type failingLister struct{}

func (failingLister) ListStale(ctx context.Context, status recordings.Status, cutoff time.Time, limit int) ([]recordings.CallRecording, error) {
	return nil, errors.New("db down")
}

func TestSweepOnce_ListError(t *testing.T) {
	s := New(failingLister{}, chunkstore.NewMemoryStore(), &fakeRedriver{}, time.Minute, logger.Discard())
	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := New(recordings.NewMemoryStore(), chunkstore.NewMemoryStore(), &fakeRedriver{}, time.Minute, logger.Discard())
	if err := s.Start("not a schedule"); err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestStart_RunsOnSchedule(t *testing.T) {
	store := recordings.NewMemoryStore()
	id := seed(t, store, time.Now().Add(-time.Hour), recordings.StatusTranscribing)
	rd := &fakeRedriver{}
	s := New(store, chunkstore.NewMemoryStore(), rd, time.Minute, logger.Discard())

	if err := s.Start("@every 1s"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	deadline := time.Now().Add(3 * time.Second)
	for len(rd.IDs()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if ids := rd.IDs(); len(ids) == 0 || ids[0] != id {
		t.Fatalf("expected scheduled sweep to re-drive %s, got %v", id, ids)
	}
}

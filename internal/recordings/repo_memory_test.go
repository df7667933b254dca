package recordings

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_UpsertAssignsIDAndDefaults(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Upsert(context.Background(), CallRecording{OrganizationID: "o", UserID: "u", CustomerName: "Acme"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if rec.Status != StatusTranscribing || rec.Outcome != OutcomePending || rec.Transcript != PendingTranscript {
		t.Fatalf("unexpected defaults: %+v", rec)
	}

	rec.CustomerName = "Acme Corp"
	again, err := s.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != rec.ID || again.CustomerName != "Acme Corp" {
		t.Fatalf("expected update in place, got %+v", again)
	}
}

func TestMemoryStore_RequiresTenant(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Upsert(context.Background(), CallRecording{UserID: "u"}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestMemoryStore_ListByUserNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 3; i++ {
		if _, err := s.Upsert(context.Background(), CallRecording{OrganizationID: "o", UserID: "u", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if _, err := s.Upsert(context.Background(), CallRecording{OrganizationID: "o", UserID: "other", StartedAt: base}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := s.ListByUser(context.Background(), "u", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected limit 2, got %d", len(out))
	}
	if !out[0].StartedAt.After(out[1].StartedAt) {
		t.Fatalf("expected newest first")
	}
}

func TestMemoryStore_UpdateRejectsRegression(t *testing.T) {
	s := NewMemoryStore()
	rec, _ := s.Upsert(context.Background(), CallRecording{OrganizationID: "o", UserID: "u"})
	if err := s.Update(context.Background(), rec.ID, Patch{Status: StatusPtr(StatusCompleted)}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Update(context.Background(), rec.ID, Patch{Status: StatusPtr(StatusInProgress)}); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Update(context.Background(), "missing", Patch{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

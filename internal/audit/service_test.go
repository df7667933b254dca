package audit

import (
	"context"
	"encoding/json"
	"testing"

	"callintel/internal/auth"
)

func TestService_AppendRequiresOrganizationAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventManualRetry}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{OrganizationID: "o"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogRecordingStampsAndEncodesMetadata(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogRecording(context.Background(), "o1", "r1", "u1", EventUploadStalled, "no chunks arrived", map[string]any{"attempts": 12})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.OfType(EventUploadStalled)
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be set")
	}
	if e.RecordingID != "r1" || e.ActorUserID != "u1" {
		t.Fatalf("unexpected targets %+v", e)
	}
	var meta map[string]int
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil || meta["attempts"] != 12 {
		t.Fatalf("unexpected metadata %q", e.Metadata)
	}
}

func TestService_LogRecordingTakesActorFromContext(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u1", OrganizationID: "o1", Role: "center_manager"})
	ctx = WithClientIP(ctx, "203.0.113.7")

	if err := svc.LogRecording(ctx, "o1", "r1", "u1", EventManualRetry, "manual retry", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogRecording(WithClientIP(context.Background(), ""), "o1", "r1", "", EventSweeperRedrive, "re-driven", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	manual := repo.OfType(EventManualRetry)[0]
	if manual.ActorRole != "center_manager" || manual.IPAddress != "203.0.113.7" {
		t.Fatalf("actor not captured: %+v", manual)
	}
	system := repo.OfType(EventSweeperRedrive)[0]
	if system.ActorRole != "" || system.IPAddress != "" || system.Metadata != "" {
		t.Fatalf("system event should carry no actor: %+v", system)
	}
}

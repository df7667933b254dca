package reporting

import (
	"context"
	"testing"
	"time"

	"callintel/internal/recordings"

	"github.com/shopspring/decimal"
)

func seed(t *testing.T, store *recordings.MemoryStore, org, user string, at time.Time, outcome recordings.Outcome, conf string, duration int) {
	t.Helper()
	ctx := context.Background()
	rec, err := store.Upsert(ctx, recordings.CallRecording{
		OrganizationID:  org,
		UserID:          user,
		StartedAt:       at,
		DurationSeconds: duration,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if outcome == recordings.OutcomePending {
		return
	}
	p := recordings.Patch{
		Status:  recordings.StatusPtr(recordings.StatusCompleted),
		Outcome: recordings.OutcomePtr(outcome),
	}
	if conf != "" {
		c := decimal.RequireFromString(conf)
		p.Confidence = &c
	}
	if err := store.Update(ctx, rec.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestRecordingsSummary_OrganizationIsolation(t *testing.T) {
	store := recordings.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, store, "o1", "u1", now, recordings.OutcomeSucceeded, "", 30)
	seed(t, store, "o2", "u2", now, recordings.OutcomeSucceeded, "", 50)

	svc := NewService(store)
	out, err := svc.RecordingsSummary(context.Background(), RecordingsSummaryRequest{
		OrganizationID: "o1",
		Range:          TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalRecordings != 1 || out.TotalDurationSeconds != 30 {
		t.Fatalf("expected only o1 rows, got %+v", out)
	}
}

func TestRecordingsSummary_Aggregates(t *testing.T) {
	store := recordings.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, store, "o", "u1", now, recordings.OutcomeSucceeded, "0.9", 60)
	seed(t, store, "o", "u1", now, recordings.OutcomeSucceeded, "0.8", 120)
	seed(t, store, "o", "u2", now, recordings.OutcomeFailed, "", 30)
	seed(t, store, "o", "u2", now, recordings.OutcomePending, "", 0)

	svc := NewService(store)
	out, err := svc.RecordingsSummary(context.Background(), RecordingsSummaryRequest{
		OrganizationID: "o",
		Range:          TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalRecordings != 4 || out.Completed != 3 || out.Transcribing != 1 {
		t.Fatalf("unexpected status counts %+v", out)
	}
	if out.Succeeded != 2 || out.Failed != 1 || out.Pending != 1 {
		t.Fatalf("unexpected outcome counts %+v", out)
	}
	if out.SuccessRate.String() != "0.6667" {
		t.Fatalf("expected success rate 0.6667, got %s", out.SuccessRate)
	}
	if !out.AverageConfidence.Valid || out.AverageConfidence.Decimal.String() != "0.85" {
		t.Fatalf("expected average confidence 0.85, got %+v", out.AverageConfidence)
	}
	if out.AverageDurationSeconds != 52 {
		t.Fatalf("expected average duration 52, got %d", out.AverageDurationSeconds)
	}
	if len(out.PerUser) != 2 || out.PerUser[0].UserID != "u1" || out.PerUser[0].Succeeded != 2 {
		t.Fatalf("unexpected per-user breakdown %+v", out.PerUser)
	}
}

func TestRecordingsSummary_UserFilterAndValidation(t *testing.T) {
	store := recordings.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, store, "o", "u1", now, recordings.OutcomeSucceeded, "", 10)
	seed(t, store, "o", "u2", now, recordings.OutcomeSucceeded, "", 10)
	svc := NewService(store)

	out, err := svc.RecordingsSummary(context.Background(), RecordingsSummaryRequest{
		OrganizationID: "o",
		UserID:         "u2",
		Range:          TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil || out.TotalRecordings != 1 {
		t.Fatalf("expected one u2 row, got %+v %v", out, err)
	}

	if _, err := svc.RecordingsSummary(context.Background(), RecordingsSummaryRequest{OrganizationID: "o"}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest for missing range, got %v", err)
	}
}

package appointments

import (
	"context"
	"errors"
	"testing"
	"time"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ids(appts []Appointment) []string {
	out := make([]string, len(appts))
	for i, a := range appts {
		out[i] = a.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBucket_UsesViewerTimeZone(t *testing.T) {
	ny, err := LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-10 22:00 in New York is already 2026-03-11 in UTC.
	now := at("2026-03-11T02:00:00Z")
	appts := []Appointment{
		{ID: "late-tonight", StartsAt: at("2026-03-11T03:30:00Z")},
		{ID: "this-morning", StartsAt: at("2026-03-10T13:00:00Z")},
		{ID: "tomorrow", StartsAt: at("2026-03-11T15:00:00Z")},
		{ID: "yesterday", StartsAt: at("2026-03-09T15:00:00Z")},
		{ID: "last-week", StartsAt: at("2026-03-03T15:00:00Z")},
	}

	b := Bucket(appts, ny, now)
	if got := ids(b.Today); !equal(got, []string{"this-morning", "late-tonight"}) {
		t.Fatalf("today: %v", got)
	}
	if got := ids(b.Upcoming); !equal(got, []string{"tomorrow"}) {
		t.Fatalf("upcoming: %v", got)
	}
	if got := ids(b.Past); !equal(got, []string{"yesterday", "last-week"}) {
		t.Fatalf("past: %v", got)
	}

	utc := Bucket(appts, time.UTC, now)
	if got := ids(utc.Today); !equal(got, []string{"late-tonight", "tomorrow"}) {
		t.Fatalf("utc today: %v", got)
	}
}

func TestBucket_EmptyBucketsAreNotNil(t *testing.T) {
	b := Bucket(nil, nil, time.Now())
	if b.Today == nil || b.Upcoming == nil || b.Past == nil {
		t.Fatalf("expected empty slices for JSON")
	}
}

func TestGroupByLocalDate(t *testing.T) {
	tokyo, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	appts := []Appointment{
		{ID: "b", StartsAt: at("2026-05-01T20:00:00Z")},
		{ID: "a", StartsAt: at("2026-05-01T16:00:00Z")},
		{ID: "c", StartsAt: at("2026-05-01T10:00:00Z")},
	}
	g := GroupByLocalDate(appts, tokyo)
	if got := ids(g["2026-05-02"]); !equal(got, []string{"a", "b"}) {
		t.Fatalf("2026-05-02: %v", got)
	}
	if got := ids(g["2026-05-01"]); !equal(got, []string{"c"}) {
		t.Fatalf("2026-05-01: %v", got)
	}
}

func TestLoadLocation(t *testing.T) {
	if loc, err := LoadLocation(""); err != nil || loc != time.UTC {
		t.Fatalf("expected UTC default")
	}
	if _, err := LoadLocation("Mars/Olympus"); !errors.Is(err, ErrUnknownTimeZone) {
		t.Fatalf("expected ErrUnknownTimeZone, got %v", err)
	}
}

func TestMemoryStore_ListByUserRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, a := range []Appointment{
		{OrganizationID: "o", UserID: "u1", StartsAt: at("2026-01-02T10:00:00Z"), Title: "in"},
		{OrganizationID: "o", UserID: "u1", StartsAt: at("2026-02-02T10:00:00Z"), Title: "out"},
		{OrganizationID: "o", UserID: "u2", StartsAt: at("2026-01-02T11:00:00Z"), Title: "other"},
	} {
		if _, err := s.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := s.ListByUser(ctx, "u1", at("2026-01-01T00:00:00Z"), at("2026-02-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "in" {
		t.Fatalf("unexpected %+v", got)
	}
	if _, err := s.Create(ctx, Appointment{UserID: "u1"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument")
	}
}

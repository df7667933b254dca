package recordings

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("recordings: not found")
	ErrInvalidArgument = errors.New("recordings: invalid argument")
)

// Store is the remote recording store.
//
// Tenancy: rows carry organization_id; per-user reads filter by user_id, which is
// unique across organizations.
type Store interface {
	// Upsert creates the row (assigning an id when rec.ID is empty) or updates the
	// mutable capture fields of an existing one. Returns the stored row.
	Upsert(ctx context.Context, rec CallRecording) (CallRecording, error)
	Update(ctx context.Context, id string, p Patch) error
	Get(ctx context.Context, id string) (CallRecording, error)

	// ListByUser returns up to limit recordings, newest StartedAt first.
	ListByUser(ctx context.Context, userID string, limit int) ([]CallRecording, error)
	// ListStale returns recordings in status whose UpdatedAt is before cutoff.
	ListStale(ctx context.Context, status Status, cutoff time.Time, limit int) ([]CallRecording, error)
	ListForOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]CallRecording, error)
}

func validateNew(rec CallRecording) error {
	if rec.OrganizationID == "" || rec.UserID == "" {
		return ErrInvalidArgument
	}
	if rec.Status != "" && !rec.Status.Valid() {
		return ErrInvalidArgument
	}
	if rec.TotalChunks < 0 {
		return ErrInvalidArgument
	}
	return nil
}

func withCreateDefaults(rec CallRecording, now time.Time) CallRecording {
	if rec.Status == "" {
		rec.Status = StatusTranscribing
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomePending
	}
	if rec.Transcript == "" {
		rec.Transcript = PendingTranscript
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec
}

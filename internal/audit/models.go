package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - organization_id is required for tenancy isolation.
// - actor capture is best-effort; pipeline events from the sweeper have no actor.
//
// Storage (Postgres): table audit_events with an INSERT-only grant.
type Event struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	RecordingID string `json:"recording_id,omitempty" db:"recording_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`
	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTranscriptionSucceeded EventType = "transcription_succeeded"
	EventTranscriptionFailed    EventType = "transcription_failed"
	EventUploadStalled          EventType = "upload_stalled"
	EventManualRetry            EventType = "manual_retry"
	EventSweeperRedrive         EventType = "sweeper_redrive"
)

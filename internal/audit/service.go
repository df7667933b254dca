package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"callintel/internal/auth"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// Audit is internal-only. Callers treat it as best-effort and never fail a
// pipeline stage because an audit write failed.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.OrganizationID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogRecording records a pipeline event against a recording. metadata may be nil.
// Actor role and IP are taken from ctx when a user initiated the event.
func (s *Service) LogRecording(ctx context.Context, organizationID, recordingID, actorUserID string, t EventType, message string, metadata map[string]any) error {
	e := Event{
		OrganizationID: organizationID,
		Type:           t,
		ActorUserID:    actorUserID,
		IPAddress:      ClientIPFromContext(ctx),
		RecordingID:    recordingID,
		Message:        message,
	}
	if actorUserID != "" {
		e.ActorRole, _ = auth.Role(ctx)
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		e.Metadata = string(raw)
	}
	return s.Append(ctx, e)
}

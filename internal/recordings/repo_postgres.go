package recordings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NOTE: PostgresStore assumes the following tables exist:
// - call_recordings (segments/speaker_mapping as JSONB, confidence NUMERIC)
// - audio_chunks (recording_id FK, status text), used for the uploaded count

// PostgresStore implements Store over database/sql (pgx stdlib driver).
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const selectRecording = `
SELECT r.id, r.organization_id, r.user_id, r.owner_name, r.customer_name,
       r.started_at, r.ended_at, r.duration_seconds, r.status, r.outcome,
       r.transcript, r.segments, r.speaker_mapping, r.confidence,
       r.total_chunks, r.upload_complete, COALESCE(r.audio_path, ''), COALESCE(r.audio_hash, ''),
       r.created_at, r.updated_at,
       (SELECT count(*) FROM audio_chunks c WHERE c.recording_id = r.id AND c.status = 'uploaded')
FROM call_recordings r
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (CallRecording, error) {
	var (
		r        CallRecording
		endedAt  sql.NullTime
		segments []byte
		mapping  []byte
	)
	if err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.UserID,
		&r.OwnerName,
		&r.CustomerName,
		&r.StartedAt,
		&endedAt,
		&r.DurationSeconds,
		&r.Status,
		&r.Outcome,
		&r.Transcript,
		&segments,
		&mapping,
		&r.Confidence,
		&r.TotalChunks,
		&r.UploadComplete,
		&r.AudioPath,
		&r.AudioHash,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.ChunksUploaded,
	); err != nil {
		return CallRecording{}, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		r.EndedAt = &t
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &r.Segments); err != nil {
			return CallRecording{}, fmt.Errorf("decode segments: %w", err)
		}
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &r.SpeakerMapping); err != nil {
			return CallRecording{}, fmt.Errorf("decode speaker_mapping: %w", err)
		}
	}
	return r, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec CallRecording) (CallRecording, error) {
	if err := validateNew(rec); err != nil {
		return CallRecording{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec = withCreateDefaults(rec, s.clock().UTC())

	segments, err := marshalOr(rec.Segments, "[]")
	if err != nil {
		return CallRecording{}, err
	}
	mapping, err := marshalOr(rec.SpeakerMapping, "{}")
	if err != nil {
		return CallRecording{}, err
	}

	const q = `
INSERT INTO call_recordings (
  id, organization_id, user_id, owner_name, customer_name, started_at, ended_at,
  duration_seconds, status, outcome, transcript, segments, speaker_mapping,
  total_chunks, upload_complete, audio_path, audio_hash, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
ON CONFLICT (id)
DO UPDATE SET customer_name = EXCLUDED.customer_name,
              ended_at = EXCLUDED.ended_at,
              duration_seconds = EXCLUDED.duration_seconds,
              total_chunks = GREATEST(call_recordings.total_chunks, EXCLUDED.total_chunks),
              updated_at = EXCLUDED.updated_at
WHERE call_recordings.organization_id = EXCLUDED.organization_id
RETURNING id
`
	var id string
	err = s.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.OrganizationID,
		rec.UserID,
		rec.OwnerName,
		rec.CustomerName,
		rec.StartedAt,
		nullTime(rec.EndedAt),
		rec.DurationSeconds,
		rec.Status,
		rec.Outcome,
		rec.Transcript,
		segments,
		mapping,
		rec.TotalChunks,
		rec.UploadComplete,
		nullString(rec.AudioPath),
		nullString(rec.AudioHash),
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict on an id owned by another organization.
			return CallRecording{}, ErrInvalidArgument
		}
		return CallRecording{}, err
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) error {
	if id == "" {
		return ErrInvalidArgument
	}
	if p.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.CustomerName != nil {
		add("customer_name", *p.CustomerName)
	}
	if p.EndedAt != nil {
		add("ended_at", *p.EndedAt)
	}
	if p.DurationSeconds != nil {
		add("duration_seconds", *p.DurationSeconds)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Outcome != nil {
		add("outcome", *p.Outcome)
	}
	if p.Transcript != nil {
		add("transcript", *p.Transcript)
	}
	if p.Segments != nil {
		b, err := json.Marshal(p.Segments)
		if err != nil {
			return fmt.Errorf("encode segments: %w", err)
		}
		add("segments", b)
	}
	if p.SpeakerMapping != nil {
		b, err := json.Marshal(p.SpeakerMapping)
		if err != nil {
			return fmt.Errorf("encode speaker_mapping: %w", err)
		}
		add("speaker_mapping", b)
	}
	if p.Confidence != nil {
		add("confidence", *p.Confidence)
	}
	if p.TotalChunks != nil {
		add("total_chunks", *p.TotalChunks)
	}
	if p.UploadComplete != nil {
		add("upload_complete", *p.UploadComplete)
	}
	if p.AudioPath != nil {
		add("audio_path", nullString(*p.AudioPath))
	}
	if p.AudioHash != nil {
		add("audio_hash", nullString(*p.AudioHash))
	}
	add("updated_at", s.clock().UTC())

	args = append(args, id)
	q := fmt.Sprintf("UPDATE call_recordings SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if p.Status != nil {
		// Guard the transition in the same statement so concurrent writers cannot regress it.
		args = append(args, statusStrings(AllowedFrom(*p.Status, p.Retry)))
		q += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (CallRecording, error) {
	r, err := scanRecording(s.db.QueryRowContext(ctx, selectRecording+"WHERE r.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecording{}, ErrNotFound
		}
		return CallRecording{}, err
	}
	return r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]CallRecording, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, selectRecording+"WHERE r.user_id = $1 ORDER BY r.started_at DESC LIMIT $2", userID, limit)
}

func (s *PostgresStore) ListStale(ctx context.Context, status Status, cutoff time.Time, limit int) ([]CallRecording, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx, selectRecording+"WHERE r.status = $1 AND r.updated_at < $2 ORDER BY r.updated_at ASC LIMIT $3", status, cutoff, limit)
}

func (s *PostgresStore) ListForOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]CallRecording, error) {
	if organizationID == "" {
		return nil, ErrInvalidArgument
	}
	return s.list(ctx, selectRecording+"WHERE r.organization_id = $1 AND r.started_at >= $2 AND r.started_at < $3 ORDER BY r.started_at DESC", organizationID, from, to)
}

func (s *PostgresStore) list(ctx context.Context, q string, args ...any) ([]CallRecording, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecording, 0)
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func marshalOr(v any, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

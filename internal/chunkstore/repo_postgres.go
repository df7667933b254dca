package chunkstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callintel/pkg/utils"

	"github.com/google/uuid"
)

// NOTE: PostgresStore assumes:
// - audio_chunks with UNIQUE (recording_id, sequence) and FK to call_recordings(id)
// - call_recordings.total_chunks / upload_complete as the parent-level flags

type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) UploadedCount(ctx context.Context, recordingID string) (int, error) {
	const q = `
SELECT count(*)
FROM audio_chunks
WHERE recording_id = $1 AND status = 'uploaded'
`
	var n int
	if err := s.db.QueryRowContext(ctx, q, recordingID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) RecordingMeta(ctx context.Context, recordingID string) (Meta, error) {
	const q = `
SELECT r.total_chunks, r.upload_complete,
       (SELECT max(c.updated_at) FROM audio_chunks c WHERE c.recording_id = r.id)
FROM call_recordings r
WHERE r.id = $1
`
	var (
		m    Meta
		last sql.NullTime
	)
	if err := s.db.QueryRowContext(ctx, q, recordingID).Scan(&m.ExpectedChunks, &m.Complete, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, ErrRecordingNotFound
		}
		return Meta{}, err
	}
	if last.Valid {
		m.LastChunkAt = last.Time.UTC()
	}
	return m, nil
}

func (s *PostgresStore) PutChunk(ctx context.Context, c AudioChunk) (AudioChunk, error) {
	if err := validateChunk(c); err != nil {
		return AudioChunk{}, err
	}
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	meta, err := s.RecordingMeta(ctx, c.RecordingID)
	if err != nil {
		return AudioChunk{}, err
	}
	if meta.Complete && c.Sequence >= meta.ExpectedChunks {
		return AudioChunk{}, ErrSequenceRange
	}

	const q = `
INSERT INTO audio_chunks (id, recording_id, sequence, status, storage_path, size_bytes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
ON CONFLICT (recording_id, sequence)
DO UPDATE SET status = EXCLUDED.status,
              storage_path = EXCLUDED.storage_path,
              size_bytes = EXCLUDED.size_bytes,
              updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at
`
	if err := s.db.QueryRowContext(ctx, q,
		c.ID,
		c.RecordingID,
		c.Sequence,
		c.Status,
		c.StoragePath,
		c.SizeBytes,
		now,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if utils.IsForeignKeyViolation(err) {
			return AudioChunk{}, ErrRecordingNotFound
		}
		return AudioChunk{}, err
	}
	return c, nil
}

func (s *PostgresStore) MarkComplete(ctx context.Context, recordingID string, totalChunks int) error {
	if recordingID == "" || totalChunks <= 0 {
		return ErrInvalidArgument
	}

	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the parent row so concurrent chunk writes see a consistent expected count.
		const lockQ = `SELECT total_chunks, upload_complete FROM call_recordings WHERE id = $1 FOR UPDATE`
		var (
			current  int
			complete bool
		)
		if err := tx.QueryRowContext(ctx, lockQ, recordingID).Scan(&current, &complete); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRecordingNotFound
			}
			return err
		}
		if complete {
			if current != totalChunks {
				return ErrAlreadyComplete
			}
			return nil
		}

		const countQ = `SELECT count(*) FROM audio_chunks WHERE recording_id = $1 AND status = 'uploaded'`
		var uploaded int
		if err := tx.QueryRowContext(ctx, countQ, recordingID).Scan(&uploaded); err != nil {
			return err
		}
		if uploaded > totalChunks {
			return ErrSequenceRange
		}

		const updateQ = `
UPDATE call_recordings
SET total_chunks = $2, upload_complete = true, updated_at = $3
WHERE id = $1
`
		_, err := tx.ExecContext(ctx, updateQ, recordingID, totalChunks, s.clock().UTC())
		return err
	})
}

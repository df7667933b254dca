package chunkstore

import (
	"context"
	"errors"
	"time"
)

// ChunkStatus is the per-chunk upload state.
type ChunkStatus string

const (
	ChunkStatusPending  ChunkStatus = "pending"
	ChunkStatusUploaded ChunkStatus = "uploaded"
	ChunkStatusFailed   ChunkStatus = "failed"
)

// AudioChunk is one fragment of a chunked upload. The pipeline only reads
// aggregate counts; chunk rows are owned by this package.
type AudioChunk struct {
	ID          string      `json:"id" db:"id"`
	RecordingID string      `json:"recording_id" db:"recording_id"`
	Sequence    int         `json:"sequence" db:"sequence"`
	Status      ChunkStatus `json:"status" db:"status"`
	StoragePath string      `json:"storage_path,omitempty" db:"storage_path"`
	SizeBytes   int64       `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Meta is the parent-level view the readiness check needs.
type Meta struct {
	ExpectedChunks int  `json:"expected_chunks"`
	Complete       bool `json:"complete"`
	// LastChunkAt is the newest chunk write; zero when no chunk landed yet.
	LastChunkAt time.Time `json:"last_chunk_at"`
}

var (
	ErrRecordingNotFound = errors.New("chunkstore: recording not found")
	ErrInvalidArgument   = errors.New("chunkstore: invalid argument")
	ErrSequenceRange     = errors.New("chunkstore: sequence outside expected chunk range")
	// ErrAlreadyComplete is returned when a completed recording is re-marked
	// with a different chunk total.
	ErrAlreadyComplete = errors.New("chunkstore: recording already marked complete")
)

// Store persists chunk upload status against the relational store.
type Store interface {
	// UploadedCount counts chunks in status uploaded without fetching them.
	UploadedCount(ctx context.Context, recordingID string) (int, error)
	RecordingMeta(ctx context.Context, recordingID string) (Meta, error)

	// PutChunk creates or replaces the chunk at (RecordingID, Sequence).
	PutChunk(ctx context.Context, c AudioChunk) (AudioChunk, error)
	// MarkComplete sets the expected chunk count and the completion flag.
	// Repeating it with the same total is a no-op.
	MarkComplete(ctx context.Context, recordingID string, totalChunks int) error
}

func validateChunk(c AudioChunk) error {
	if c.RecordingID == "" || c.Sequence < 0 {
		return ErrInvalidArgument
	}
	switch c.Status {
	case ChunkStatusPending, ChunkStatusUploaded, ChunkStatusFailed:
		return nil
	default:
		return ErrInvalidArgument
	}
}

package chunkstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	meta   map[string]Meta
	chunks map[string]map[int]AudioChunk

	failNext   int
	countCalls atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{meta: map[string]Meta{}, chunks: map[string]map[int]AudioChunk{}}
}

// Track registers a recording so chunks may be written for it.
func (s *MemoryStore) Track(recordingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[recordingID]; !ok {
		s.meta[recordingID] = Meta{}
		s.chunks[recordingID] = map[int]AudioChunk{}
	}
}

// FailNext makes the next n reads return an error.
func (s *MemoryStore) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// CountCalls reports how many UploadedCount reads were made.
func (s *MemoryStore) CountCalls() int { return int(s.countCalls.Load()) }

func (s *MemoryStore) UploadedCount(ctx context.Context, recordingID string) (int, error) {
	s.countCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injectedErr(); err != nil {
		return 0, err
	}
	n := 0
	for _, c := range s.chunks[recordingID] {
		if c.Status == ChunkStatusUploaded {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RecordingMeta(ctx context.Context, recordingID string) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injectedErr(); err != nil {
		return Meta{}, err
	}
	m, ok := s.meta[recordingID]
	if !ok {
		return Meta{}, ErrRecordingNotFound
	}
	for _, c := range s.chunks[recordingID] {
		if c.UpdatedAt.After(m.LastChunkAt) {
			m.LastChunkAt = c.UpdatedAt
		}
	}
	return m, nil
}

func (s *MemoryStore) PutChunk(ctx context.Context, c AudioChunk) (AudioChunk, error) {
	if err := validateChunk(c); err != nil {
		return AudioChunk{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[c.RecordingID]
	if !ok {
		return AudioChunk{}, ErrRecordingNotFound
	}
	if m.Complete && c.Sequence >= m.ExpectedChunks {
		return AudioChunk{}, ErrSequenceRange
	}
	now := time.Now().UTC()
	if prev, ok := s.chunks[c.RecordingID][c.Sequence]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.chunks[c.RecordingID][c.Sequence] = c
	return c, nil
}

func (s *MemoryStore) MarkComplete(ctx context.Context, recordingID string, totalChunks int) error {
	if recordingID == "" || totalChunks <= 0 {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[recordingID]
	if !ok {
		return ErrRecordingNotFound
	}
	if m.Complete {
		if m.ExpectedChunks != totalChunks {
			return ErrAlreadyComplete
		}
		return nil
	}
	uploaded := 0
	for _, c := range s.chunks[recordingID] {
		if c.Status == ChunkStatusUploaded {
			uploaded++
		}
	}
	if uploaded > totalChunks {
		return ErrSequenceRange
	}
	s.meta[recordingID] = Meta{ExpectedChunks: totalChunks, Complete: true}
	return nil
}

func (s *MemoryStore) injectedErr() error {
	if s.failNext > 0 {
		s.failNext--
		return errTransient
	}
	return nil
}

type transientError struct{}

func (transientError) Error() string { return "chunkstore: transient read failure" }

var errTransient error = transientError{}

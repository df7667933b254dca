package recordings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]CallRecording

	// FailUpdates makes Update return this error when set.
	FailUpdates error

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]CallRecording{}, clock: time.Now}
}

func (s *MemoryStore) Upsert(ctx context.Context, rec CallRecording) (CallRecording, error) {
	if err := validateNew(rec); err != nil {
		return CallRecording{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	if existing, ok := s.rows[rec.ID]; ok && rec.ID != "" {
		existing.CustomerName = rec.CustomerName
		existing.EndedAt = rec.EndedAt
		existing.DurationSeconds = rec.DurationSeconds
		if rec.TotalChunks > 0 {
			existing.TotalChunks = rec.TotalChunks
		}
		existing.UpdatedAt = now
		s.rows[rec.ID] = existing
		return clone(existing), nil
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec = withCreateDefaults(rec, now)
	s.rows[rec.ID] = clone(rec)
	return clone(rec), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates != nil {
		return s.FailUpdates
	}
	rec, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	if err := p.ApplyTo(&rec); err != nil {
		return err
	}
	rec.UpdatedAt = s.clock().UTC()
	s.rows[id] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (CallRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return CallRecording{}, ErrNotFound
	}
	return clone(rec), nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]CallRecording, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.filter(limit, func(r CallRecording) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListStale(ctx context.Context, status Status, cutoff time.Time, limit int) ([]CallRecording, error) {
	return s.filter(limit, func(r CallRecording) bool {
		return r.Status == status && r.UpdatedAt.Before(cutoff)
	}), nil
}

func (s *MemoryStore) ListForOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]CallRecording, error) {
	if organizationID == "" {
		return nil, ErrInvalidArgument
	}
	return s.filter(0, func(r CallRecording) bool {
		return r.OrganizationID == organizationID && !r.StartedAt.Before(from) && r.StartedAt.Before(to)
	}), nil
}

// SetUpdatedAt backdates a row; used by sweeper tests.
func (s *MemoryStore) SetUpdatedAt(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rows[id]; ok {
		rec.UpdatedAt = t
		s.rows[id] = rec
	}
}

func (s *MemoryStore) filter(limit int, keep func(CallRecording) bool) []CallRecording {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecording, 0)
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func clone(r CallRecording) CallRecording {
	if r.Segments != nil {
		r.Segments = append([]Segment(nil), r.Segments...)
	}
	if r.SpeakerMapping != nil {
		m := make(map[string]string, len(r.SpeakerMapping))
		for k, v := range r.SpeakerMapping {
			m[k] = v
		}
		r.SpeakerMapping = m
	}
	return r
}

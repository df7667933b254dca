package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu   sync.Mutex
	rows []Appointment
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Create(ctx context.Context, a Appointment) (Appointment, error) {
	if err := validateNew(a); err != nil {
		return Appointment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, a)
	return a, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Appointment, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Appointment{}
	for _, a := range s.rows {
		if a.UserID == userID && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

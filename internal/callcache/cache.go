package callcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"callintel/internal/recordings"

	"github.com/google/uuid"
)

// PlaceholderPrefix marks ids assigned before the store returned the real one.
const PlaceholderPrefix = "local-"

const defaultLoadLimit = 50

var (
	ErrNotCached    = errors.New("callcache: call not in cache")
	ErrNotPersisted = errors.New("callcache: call has not been persisted yet")
	ErrNoAudio      = errors.New("callcache: audio is required")
)

func IsPlaceholder(id string) bool { return strings.HasPrefix(id, PlaceholderPrefix) }

// Cache is one user's newest-first list of calls. Entries are replaced whole,
// keyed by id; there is no version check.
type Cache struct {
	reg    *Registry
	userID string

	mu      sync.Mutex
	entries []recordings.CallRecording
}

// LoadCalls replaces the cache with up to limit remote rows, newest first.
func (c *Cache) LoadCalls(ctx context.Context, limit int) ([]recordings.CallRecording, error) {
	if limit <= 0 {
		limit = defaultLoadLimit
	}
	rows, err := c.reg.store.ListByUser(ctx, c.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}
	c.mu.Lock()
	c.entries = rows
	c.mu.Unlock()
	return c.List(), nil
}

// NewCall is a finished single-blob recording handed over by the recorder.
type NewCall struct {
	OrganizationID string
	OwnerName      string
	CustomerName   string
	StartedAt      time.Time
	EndedAt        time.Time

	Audio       []byte
	ContentType string
}

// AddCall puts a placeholder at the head of the list and returns it. Persist,
// upload and transcription continue in the background; the placeholder is
// swapped for the stored row in place.
func (c *Cache) AddCall(ctx context.Context, nc NewCall) (recordings.CallRecording, error) {
	if len(nc.Audio) == 0 {
		return recordings.CallRecording{}, ErrNoAudio
	}
	if nc.OrganizationID == "" {
		return recordings.CallRecording{}, recordings.ErrInvalidArgument
	}

	now := time.Now().UTC()
	if nc.StartedAt.IsZero() {
		nc.StartedAt = now
	}
	placeholder := recordings.CallRecording{
		ID:             PlaceholderPrefix + uuid.NewString(),
		OrganizationID: nc.OrganizationID,
		UserID:         c.userID,
		OwnerName:      nc.OwnerName,
		CustomerName:   nc.CustomerName,
		StartedAt:      nc.StartedAt.UTC(),
		Status:         recordings.StatusTranscribing,
		Outcome:        recordings.OutcomePending,
		Transcript:     recordings.PendingTranscript,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !nc.EndedAt.IsZero() {
		end := nc.EndedAt.UTC()
		placeholder.EndedAt = &end
		if d := end.Sub(placeholder.StartedAt); d > 0 {
			placeholder.DurationSeconds = int(d.Round(time.Second) / time.Second)
		}
	}

	c.mu.Lock()
	c.entries = append([]recordings.CallRecording{placeholder}, c.entries...)
	c.mu.Unlock()

	c.reg.goTracked(func(ctx context.Context) {
		c.persist(ctx, placeholder, nc)
	})
	return placeholder, nil
}

// UpdateCall writes p remotely, then replaces the cached entry with the stored row.
func (c *Cache) UpdateCall(ctx context.Context, id string, p recordings.Patch) (recordings.CallRecording, error) {
	if IsPlaceholder(id) {
		return recordings.CallRecording{}, ErrNotPersisted
	}
	if err := c.reg.store.Update(ctx, id, p); err != nil {
		return recordings.CallRecording{}, err
	}
	rec, err := c.reg.store.Get(ctx, id)
	if err != nil {
		return recordings.CallRecording{}, err
	}
	if rec.UserID != c.userID {
		return recordings.CallRecording{}, recordings.ErrNotFound
	}
	c.put(rec)
	return rec, nil
}

func (c *Cache) UpdateSpeakerMapping(ctx context.Context, id string, mapping map[string]string) (recordings.CallRecording, error) {
	if mapping == nil {
		mapping = map[string]string{}
	}
	return c.UpdateCall(ctx, id, recordings.Patch{SpeakerMapping: mapping})
}

// Patch edits the cached entry in place. It reports whether id was cached.
func (c *Cache) Patch(id string, fn func(*recordings.CallRecording)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			e := c.entries[i]
			fn(&e)
			c.entries[i] = e
			return true
		}
	}
	return false
}

func (c *Cache) Get(id string) (recordings.CallRecording, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return recordings.CallRecording{}, false
}

func (c *Cache) List() []recordings.CallRecording {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordings.CallRecording(nil), c.entries...)
}

// put replaces the entry with rec.ID, or prepends rec when it is not cached.
func (c *Cache) put(rec recordings.CallRecording) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == rec.ID {
			c.entries[i] = rec
			return
		}
	}
	c.entries = append([]recordings.CallRecording{rec}, c.entries...)
}

// swapID replaces the placeholder entry with rec without moving it.
func (c *Cache) swapID(placeholderID string, rec recordings.CallRecording) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == placeholderID {
			c.entries[i] = rec
			return true
		}
	}
	return false
}

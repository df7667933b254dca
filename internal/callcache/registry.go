package callcache

import (
	"context"
	"log/slog"
	"sync"

	"callintel/internal/objectstore"
	"callintel/internal/recordings"
	"callintel/pkg/logger"
)

// Transcriber runs the single-blob transcription path for a stored call.
type Transcriber interface {
	TranscribeUpload(ctx context.Context, rec recordings.CallRecording, audio []byte)
}

// Registry owns one Cache per user and the goroutines AddCall starts.
type Registry struct {
	store   recordings.Store
	objects objectstore.Store
	log     *slog.Logger

	mu     sync.Mutex
	caches map[string]*Cache
	tr     Transcriber

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(store recordings.Store, objects objectstore.Store, log *slog.Logger) *Registry {
	root, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:   store,
		objects: objects,
		log:     logger.OrDefault(log),
		caches:  map[string]*Cache{},
		root:    root,
		cancel:  cancel,
	}
}

// SetTranscriber wires the pipeline in after construction; the pipeline
// mirrors into this registry, so neither can be built first.
func (r *Registry) SetTranscriber(t Transcriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tr = t
}

func (r *Registry) transcriber() Transcriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tr
}

func (r *Registry) For(userID string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[userID]
	if !ok {
		c = &Cache{reg: r, userID: userID}
		r.caches[userID] = c
	}
	return c
}

// Mirror applies a patch already sent to the store. Only users with a cache
// are touched, and status is copied as-is since the store has ruled on it.
func (r *Registry) Mirror(userID, recordingID string, p recordings.Patch) {
	r.mu.Lock()
	c, ok := r.caches[userID]
	r.mu.Unlock()
	if !ok {
		return
	}
	c.Patch(recordingID, func(e *recordings.CallRecording) {
		status := p.Status
		p.Status = nil
		if err := p.ApplyTo(e); err != nil {
			r.log.Debug("mirror patch rejected", "recording_id", recordingID, "err", err)
			return
		}
		if status != nil {
			e.Status = *status
		}
	})
}

func (r *Registry) goTracked(fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.root)
	}()
}

// Wait blocks until background AddCall work has finished.
func (r *Registry) Wait() { r.wg.Wait() }

// Shutdown cancels background work and waits for it, or for ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps objects in a map. Used by tests and local runs without GCS.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	// FailUploads makes Upload return this error when set.
	FailUploads error
}

type memObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memObject{}}
}

func (s *MemoryStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (Object, error) {
	if path == "" || r == nil {
		return Object{}, ErrInvalidArgument
	}
	s.mu.Lock()
	fail := s.FailUploads
	s.mu.Unlock()
	if fail != nil {
		return Object{}, fail
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memObject{contentType: contentType, data: data}
	return Object{Path: path, ContentType: contentType, Size: int64(len(data))}, nil
}

// Get returns a copy of the stored bytes.
func (s *MemoryStore) Get(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(o.data), nil
}

func (s *MemoryStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	return out
}

func (s *MemoryStore) SignedURL(path string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s?ttl=%d", path, int(ttl.Seconds())), nil
}

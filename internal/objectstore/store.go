package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound        = errors.New("objectstore: object not found")
	ErrInvalidArgument = errors.New("objectstore: invalid argument")
	ErrSigningDisabled = errors.New("objectstore: url signing is not configured")
)

// Object describes a stored blob. Path is the full object key.
type Object struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store writes audio blobs and chunk payloads.
type Store interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (Object, error)
}

// Signer issues time-limited download URLs for stored objects.
type Signer interface {
	SignedURL(path string, ttl time.Duration) (string, error)
}

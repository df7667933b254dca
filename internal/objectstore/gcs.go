package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSConfig configures the Cloud Storage backend. Credentials for uploads come
// from Application Default Credentials; signing needs an explicit service account.
type GCSConfig struct {
	Bucket string
	Prefix string

	SignerEmail      string
	SignerPrivateKey string
}

type GCSStore struct {
	client *storage.Client
	cfg    GCSConfig
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, cfg: cfg}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) key(path string) string {
	if s.cfg.Prefix == "" {
		return path
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (s *GCSStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (Object, error) {
	if path == "" || r == nil {
		return Object{}, ErrInvalidArgument
	}
	key := s.key(path)

	w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	// Close flushes the final request; the object exists only after it succeeds.
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("gcs close %s: %w", key, err)
	}
	return Object{Path: key, ContentType: contentType, Size: n}, nil
}

// SignedURL generates a V4 signed GET URL for path, which is already a full key.
func (s *GCSStore) SignedURL(path string, ttl time.Duration) (string, error) {
	if s.cfg.SignerEmail == "" || s.cfg.SignerPrivateKey == "" {
		return "", ErrSigningDisabled
	}
	// Env-provided keys carry literal \n sequences.
	key := strings.ReplaceAll(s.cfg.SignerPrivateKey, `\n`, "\n")

	return storage.SignedURL(s.cfg.Bucket, path, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: s.cfg.SignerEmail,
		PrivateKey:     []byte(key),
	})
}

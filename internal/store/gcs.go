package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// GCSStore keeps the status map as a single JSON object in a bucket, in the
// same format FileStore writes.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
	log    *slog.Logger
	owned  bool
}

// NewGCSStore creates a client from application default credentials and
// returns a store for cfg.Bucket/cfg.Object.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig, opts ...Option) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	s, err := NewGCSStoreWithClient(client, cfg, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewGCSStoreWithClient wraps an existing client. The caller keeps ownership
// of the client.
func NewGCSStoreWithClient(client *storage.Client, cfg config.GCSConfig, opts ...Option) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		return nil, fmt.Errorf("object name is required")
	}

	o := buildOptions(opts)
	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
		log:    o.log,
	}, nil
}

// URI returns the gs:// location of the state object.
func (s *GCSStore) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Load downloads the object. A missing object yields an empty map.
func (s *GCSStore) Load(ctx context.Context) (domain.StatusMap, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		s.log.Debug("no state object yet", "uri", s.URI())
		return domain.StatusMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.URI(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.URI(), err)
	}

	return decodeStatusMap(data, s.URI(), s.log), nil
}

// Save uploads the encoded map, replacing the object.
func (s *GCSStore) Save(ctx context.Context, m domain.StatusMap) error {
	data, err := encodeStatusMap(m)
	if err != nil {
		return err
	}

	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		closeErr := w.Close()
		if closeErr != nil {
			return fmt.Errorf("uploading %s: %w (close writer: %v)", s.URI(), err, closeErr)
		}
		return fmt.Errorf("uploading %s: %w", s.URI(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", s.URI(), err)
	}

	s.log.Debug("saved state", "uri", s.URI(), "products", len(m))
	return nil
}

// Ping checks the bucket is reachable with the current credentials.
func (s *GCSStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Close releases the client if the store created it.
func (s *GCSStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

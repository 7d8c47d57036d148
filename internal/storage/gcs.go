package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// GCSStore persists images in a Google Cloud Storage bucket. Objects are
// uploaded with a content type derived from the key's extension, tagged with
// provenance metadata and made publicly readable.
type GCSStore struct {
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	bucketName string
	logger     zerolog.Logger
}

// NewGCSStore connects to the bucket using ambient application credentials.
func NewGCSStore(ctx context.Context, bucketName string, logger zerolog.Logger) (*GCSStore, error) {
	bucketName = strings.TrimSpace(bucketName)
	if bucketName == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCSStore{
		client:     client,
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		logger:     logger,
	}, nil
}

// Exists probes the object's metadata. Probe failures other than "object
// does not exist" are logged and reported as absent, so the pipeline writes
// again rather than skipping a lot on a flaky check.
func (s *GCSStore) Exists(ctx context.Context, key string) bool {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true
	}
	if !errors.Is(err, gcs.ErrObjectNotExist) {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage: gcs attrs probe failed")
	}
	return false
}

// Write uploads the image bytes and marks the object publicly readable.
func (s *GCSStore) Write(ctx context.Context, key string, data []byte, meta Metadata) error {
	obj := s.bucket.Object(key)

	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeFor(key, data)
	w.Metadata = map[string]string{
		"original_url": meta.OriginalRef,
		"lot_ref":      meta.LotRef,
		"house_name":   meta.HouseName,
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: gcs upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: gcs upload %s: %w", key, err)
	}

	// Buckets with uniform bucket-level access reject per-object ACLs.
	// The upload already happened, so failing the write here would leave
	// an object that a later Exists probe reports as processed while the
	// lot is recorded as failed. The ACL failure degrades to a warning
	// and the stored reference stays truthful.
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage: gcs public acl failed")
	}
	return nil
}

// PublicURL returns the public HTTPS URL of the object.
func (s *GCSStore) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// contentTypeFor sniffs the image format from the payload itself, falling
// back to the key's extension. Stored bytes do not always match the source
// reference's extension: placeholders are PNG and flattened transcodes are
// JPEG regardless of what the origin served.
func contentTypeFor(key string, data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

var _ Store = (*GCSStore)(nil)

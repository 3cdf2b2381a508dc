package staging

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"
)

// ObjectStoreSource reads assets from a NATS JetStream object store bucket.
// Object names are the manifest's relative paths.
type ObjectStoreSource struct {
	store  nats.ObjectStore
	bucket string
}

// NewObjectStoreSource binds to an existing bucket.
func NewObjectStoreSource(js nats.JetStreamContext, bucket string) (*ObjectStoreSource, error) {
	store, err := js.ObjectStore(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to object store bucket '%s': %w", bucket, err)
	}
	return &ObjectStoreSource{store: store, bucket: bucket}, nil
}

// CreateObjectStoreSource binds to bucket, creating it first when it does
// not exist yet.
func CreateObjectStoreSource(js nats.JetStreamContext, bucket string) (*ObjectStoreSource, error) {
	store, err := js.ObjectStore(bucket)
	if err == nil {
		return &ObjectStoreSource{store: store, bucket: bucket}, nil
	}

	store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("Staged voice assets for the %s bucket.", bucket),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
	}
	return &ObjectStoreSource{store: store, bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *ObjectStoreSource) Bucket() string {
	return s.bucket
}

// ReadFile downloads the object named rel.
func (s *ObjectStoreSource) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !fs.ValidPath(rel) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	data, err := s.store.GetBytes(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", rel, s.bucket, err)
	}
	return data, nil
}

// Push uploads every file below dir plus a freshly generated manifest.
// It returns the number of assets uploaded, not counting the manifest.
func (s *ObjectStoreSource) Push(ctx context.Context, dir string) (int, error) {
	entries, err := GenerateManifest(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(entry)))
		if err != nil {
			return i, err
		}
		if _, err := s.store.PutBytes(entry, data); err != nil {
			return i, fmt.Errorf("failed to put object '%s' to bucket '%s': %w", entry, s.bucket, err)
		}
	}

	if _, err := s.store.PutBytes(ManifestFile, encodeManifest(entries)); err != nil {
		return len(entries), fmt.Errorf("failed to put manifest to bucket '%s': %w", s.bucket, err)
	}

	return len(entries), nil
}

// Package filestore defines the interface for object storage backends that
// hold database snapshots.
//
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	cfg := &filestore.Config{Endpoint: "localhost:9000", Bucket: filestore.DefaultBucket}
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.PutFile(ctx, cfg.Bucket, "snapshots/20240101T000000Z/main.db", "/tmp/main.db", filestore.ContentTypeSQLite)
package filestore

import "context"

// ContentTypeSQLite is the MIME type snapshots are stored with.
const ContentTypeSQLite = "application/vnd.sqlite3"

// Store is the interface all file storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutFile uploads the local file at path to key inside bucket.
	PutFile(ctx context.Context, bucket, key, path, contentType string) (*ObjectInfo, error)

	// GetFile downloads the object at key inside bucket to the local file at path.
	GetFile(ctx context.Context, bucket, key, path string) error

	// ListObjects returns the objects in bucket that match opts.
	// Virtual directory entries (common prefixes) are included when opts.Recursive is false.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)
}

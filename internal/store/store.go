// Package store is the artifact gateway for extraction runs. Source
// documents, intermediate text, and result payloads all live behind
// the Gateway interface, keyed by the layout in keys.go.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/haasonsaas/quarry/pkg/models"
)

// ErrNotFound reports that a key has no object behind it.
var ErrNotFound = errors.New("object not found")

// ErrUnsupported reports an operation the backend cannot perform.
var ErrUnsupported = errors.New("operation not supported by this backend")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Gateway is the storage surface the extraction pipeline runs against.
// Implementations must map their backend's missing-object errors to
// ErrNotFound so callers can branch on it.
type Gateway interface {
	// Head reports whether key exists.
	Head(ctx context.Context, key string) (bool, error)

	// Get streams the object at key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes body to key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// Copy performs a backend-side copy from srcBucket/srcKey to
	// dstKey in this gateway's bucket. srcBucket "" means this bucket.
	Copy(ctx context.Context, srcBucket, srcKey, dstKey string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns objects under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// PresignUpload issues a browser upload grant for a source
	// document named fileName. The grant's fields always carry the
	// canonical object key.
	PresignUpload(ctx context.Context, fileName string, ttl time.Duration) (*models.UploadGrant, error)

	// PresignDownload issues a time-limited URL for reading key.
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Bucket names the backing bucket, or "" for non-bucket backends.
	Bucket() string
}

// Package storage abstracts object storage for generated image assets.
//
// Two implementations exist: LocalStorage for development (files on
// disk served over HTTP) and R2Storage for production (Cloudflare R2
// via the S3-compatible API).
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Storage stores and serves generated assets. All methods are
// context-aware.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists when the key is
	// taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object's data (caller closes) and metadata.
	// Returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object. Public objects get a permanent
	// URL; otherwise a presigned URL valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Auto-detected when empty.
	ContentType string

	// MaxSize caps the object size in bytes. 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object publicly readable (R2 ACL; informational
	// for local storage).
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig configures local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory for stored files.
	BasePath string

	// BaseURL is the public URL prefix files are served under,
	// e.g. "http://localhost:8080/assets".
	BaseURL string
}

// R2Config configures Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public URL (custom domain). When empty
	// all access goes through presigned URLs.
	PublicURL string

	// Region defaults to "auto", which is what R2 expects.
	Region string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// AssetKey generates a storage key for a generated image.
// Format: users/{userID}/generations/{uuid}{ext}
func AssetKey(userID uuid.UUID, contentType string) string {
	return fmt.Sprintf("users/%s/generations/%s%s", userID, uuid.New(), ExtensionFor(contentType))
}

// ThumbnailKey generates a storage key for an asset thumbnail.
// Format: users/{userID}/thumbnails/{uuid}{ext}
func ThumbnailKey(userID uuid.UUID, contentType string) string {
	return fmt.Sprintf("users/%s/thumbnails/%s%s", userID, uuid.New(), ExtensionFor(contentType))
}

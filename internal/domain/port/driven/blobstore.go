package driven

import (
	"context"
	"io"
)

// BlobStore defines the driven port for the content-addressed byte store.
// Keys are slash-separated paths chosen by the caller; re-writing a key is
// expected to be idempotent because keys embed the content identity
// (owner/repo/commit/name for packages, a fresh UUID for template blobs).
type BlobStore interface {
	// Put streams r into the store under key. When expectedSHA1 is non-empty
	// it is the lowercase hex SHA-1 of the pre-transfer content; the write
	// fails and leaves no object behind if the streamed bytes do not hash to
	// it.
	Put(ctx context.Context, key string, r io.Reader, expectedSHA1 string) error
	// PutBytes stores data under key without checksum verification.
	PutBytes(ctx context.Context, key string, data []byte) error
	// Get opens the object at key for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Has reports whether an object exists at key.
	Has(ctx context.Context, key string) (bool, error)
	// Remove deletes the object at key. Removing a missing key is a no-op.
	Remove(ctx context.Context, key string) error
}

// NotFoundError is returned by BlobStore.Get for missing keys. Declared here
// so callers do not depend on a concrete adapter.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return "blob not found: " + e.Key
}

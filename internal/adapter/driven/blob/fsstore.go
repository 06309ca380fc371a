// Package blob implements the BlobStore port on the local filesystem.
// Objects are plain files under a root directory; keys are slash-separated
// paths. Writes stream through a SHA-1 hash into a temp file and are moved
// into place atomically, so a partially-written or checksum-failed upload
// never becomes visible under its key.
package blob

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*FSStore)(nil)

// FSStore is a filesystem-backed blob store rooted at a single directory.
type FSStore struct {
	root string
}

// NewFSStore creates an FSStore rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", dir, err)
	}
	return &FSStore{root: dir}, nil
}

// Put streams r into the store under key, verifying the SHA-1 checksum when
// expectedSHA1 is non-empty. On mismatch the temp file is discarded and the
// previous object at key, if any, is left untouched.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, expectedSHA1 string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.root, "upload-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha1.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", key, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}

	if expectedSHA1 != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, expectedSHA1) {
			return fmt.Errorf("checksum mismatch for %s: declared %s, streamed %s", key, expectedSHA1, actual)
		}
	}

	if err := atomic.ReplaceFile(tmpPath, path); err != nil {
		return fmt.Errorf("finalize blob %s: %w", key, err)
	}

	return nil
}

// PutBytes stores data under key without checksum verification.
func (s *FSStore) PutBytes(ctx context.Context, key string, data []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir for %s: %w", key, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}

	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}

	return nil
}

// Get opens the object at key for reading.
func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &driven.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}

	return f, nil
}

// Has reports whether an object exists at key.
func (s *FSStore) Has(_ context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}

	return true, nil
}

// Remove deletes the object at key. Removing a missing key is a no-op.
func (s *FSStore) Remove(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", key, err)
	}

	return nil
}

// pathFor maps a key to a filesystem path under the root, rejecting keys
// that could escape it.
func (s *FSStore) pathFor(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid blob key %q", key)
		}
	}

	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

package blob_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewpub/previewpub/internal/adapter/driven/blob"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

func newTestStore(t *testing.T) *blob.FSStore {
	t.Helper()

	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sha1Hex(data string) string {
	sum := sha1.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

func TestFSStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "tarball bytes"
	err := store.Put(ctx, "pkg/acme/widgets/abc123/widget-core", strings.NewReader(content), sha1Hex(content))
	require.NoError(t, err)

	rc, err := store.Get(ctx, "pkg/acme/widgets/abc123/widget-core")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestFSStore_PutChecksumMismatchLeavesNothingBehind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "pkg/acme/widgets/abc123/widget-core", strings.NewReader("tampered"), sha1Hex("original"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	ok, err := store.Has(ctx, "pkg/acme/widgets/abc123/widget-core")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSStore_PutChecksumMismatchKeepsPreviousObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "pkg/k", strings.NewReader("good"), sha1Hex("good")))
	require.Error(t, store.Put(ctx, "pkg/k", strings.NewReader("bad"), sha1Hex("something else")))

	rc, err := store.Get(ctx, "pkg/k")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "good", string(got))
}

func TestFSStore_PutChecksumIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)

	content := "bytes"
	err := store.Put(context.Background(), "pkg/k", strings.NewReader(content), strings.ToUpper(sha1Hex(content)))
	require.NoError(t, err)
}

func TestFSStore_PutOverwriteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "same content on retry"
	require.NoError(t, store.Put(ctx, "pkg/k", strings.NewReader(content), sha1Hex(content)))
	require.NoError(t, store.Put(ctx, "pkg/k", strings.NewReader(content), sha1Hex(content)))

	rc, err := store.Get(ctx, "pkg/k")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestFSStore_PutWithoutChecksumSkipsVerification(t *testing.T) {
	store := newTestStore(t)

	err := store.Put(context.Background(), "tpl/asset-1", strings.NewReader("binary asset"), "")
	require.NoError(t, err)
}

func TestFSStore_GetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "pkg/missing")
	require.Error(t, err)

	var notFound *driven.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFSStore_PutBytesAndHas(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBytes(ctx, "tpl/bundle-1", []byte("<html></html>")))

	ok, err := store.Has(ctx, "tpl/bundle-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFSStore_RemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBytes(ctx, "tpl/bundle-1", []byte("x")))
	require.NoError(t, store.Remove(ctx, "tpl/bundle-1"))
	require.NoError(t, store.Remove(ctx, "tpl/bundle-1"))

	ok, err := store.Has(ctx, "tpl/bundle-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSStore_RejectsTraversalKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "a//b", "a/../b", "./a"} {
		err := store.PutBytes(ctx, key, []byte("x"))
		assert.Error(t, err, "key %q must be rejected", key)
	}
}

func TestFSStore_ScopedPackageNamesMapToNestedPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "scoped tarball"
	key := "pkg/acme/widgets/abc123/@acme/widget-core"
	require.NoError(t, store.Put(ctx, key, strings.NewReader(content), sha1Hex(content)))

	ok, err := store.Has(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmirror/shared/application/mocks"
	"pgmirror/shared/application/ports"
)

func newTestStorage(t *testing.T) (*Storage, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := NewStorage(fsys, "/data", mocks.NewNopLogger(), mocks.NewNopMetrics())
	require.NoError(t, err)
	return s, fsys
}

func TestStorage_PutGet(t *testing.T) {
	ctx := context.Background()
	s, fsys := newTestStorage(t)

	err := s.Put(ctx, "", "listing/file_on_aleph", strings.NewReader("GUTINDEX.ALL\n"), ports.ObjectMetadata{ContentType: "text/plain"})
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "/data/listing/file_on_aleph")
	require.NoError(t, err)
	assert.Equal(t, "GUTINDEX.ALL\n", string(data))

	reader, metadata, err := s.GetWithMetadata(ctx, "", "listing/file_on_aleph")
	require.NoError(t, err)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "GUTINDEX.ALL\n", string(body))
	assert.Equal(t, "text/plain", metadata.ContentType)
	assert.Equal(t, int64(13), metadata.ContentLength)
}

func TestStorage_NotFound(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.Get(context.Background(), "", "index/missing.snapshot.gz")
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)

	ok, err := s.Exists(context.Background(), "", "index/missing.snapshot.gz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_KeysStayInsideBucket(t *testing.T) {
	ctx := context.Background()
	s, fsys := newTestStorage(t)

	require.NoError(t, s.Put(ctx, "", "../../etc/passwd", strings.NewReader("x"), ports.ObjectMetadata{}))

	ok, err := afero.Exists(fsys, "/data/etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	for _, key := range []string{"index/b.snapshot.gz", "index/a.snapshot.gz", "listing/file_on_a"} {
		require.NoError(t, s.Put(ctx, "", key, strings.NewReader(key), ports.ObjectMetadata{}))
	}

	objects, err := s.List(ctx, "", "index/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "index/a.snapshot.gz", objects[0].Key)
	assert.Equal(t, "index/b.snapshot.gz", objects[1].Key)

	require.NoError(t, s.Delete(ctx, "", "index/a.snapshot.gz"))
	ok, err := s.Exists(ctx, "", "index/a.snapshot.gz")
	require.NoError(t, err)
	assert.False(t, ok)

	empty, err := s.List(ctx, "other-bucket", "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_PutHonoursCancellation(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "", "listing/file_on_a", strings.NewReader("data"), ports.ObjectMetadata{})
	assert.ErrorIs(t, err, context.Canceled)

	ok, _ := s.Exists(context.Background(), "", "listing/file_on_a")
	assert.False(t, ok)
}

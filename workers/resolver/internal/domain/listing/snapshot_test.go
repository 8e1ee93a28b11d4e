package listing

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, text string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &buf
}

func TestSnapshot(t *testing.T) {
	t.Run("restores the same index", func(t *testing.T) {
		idx := NewIndex("1/0/0/2/10023/pg10023.epub", "cache/epub/10023/pg10023.epub", "etext99/alice10h.htm")

		var buf bytes.Buffer
		require.NoError(t, WriteSnapshot(&buf, idx, []int{10023, 11, 10023}))

		restored, header, err := ReadSnapshot(&buf)
		require.NoError(t, err)
		assert.True(t, idx.Equal(restored))
		assert.Equal(t, 3, header.Count)
		assert.Equal(t, "11,10023", header.Scope)
	})

	t.Run("whole mirror scope", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSnapshot(&buf, NewIndex(), nil))

		restored, header, err := ReadSnapshot(&buf)
		require.NoError(t, err)
		assert.Equal(t, 0, restored.Len())
		assert.Equal(t, "*", header.Scope)
	})

	t.Run("rejects plain text", func(t *testing.T) {
		_, _, err := ReadSnapshot(bytes.NewBufferString("not gzip"))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects unknown header", func(t *testing.T) {
		_, _, err := ReadSnapshot(gzipped(t, "something else\n0/1/pg1.epub\n"))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects count mismatch", func(t *testing.T) {
		_, _, err := ReadSnapshot(gzipped(t, "pgmirror-index v1 count=3 scope=*\n0/1/pg1.epub\n"))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects missing scope", func(t *testing.T) {
		_, _, err := ReadSnapshot(gzipped(t, "pgmirror-index v1 count=0\n"))
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "*", ScopeKey(nil))
	assert.Equal(t, "1,2,30", ScopeKey([]int{30, 2, 1, 2}))
}

func TestIndex(t *testing.T) {
	idx := NewIndex("/0/1/pg1.epub", " cache/epub/1/pg1.epub ")

	assert.True(t, idx.Contains("0/1/pg1.epub"))
	assert.True(t, idx.Contains("/cache/epub/1/pg1.epub"))
	assert.False(t, idx.Contains("0/2/pg2.epub"))

	var empty *Index
	assert.False(t, empty.Contains("0/1/pg1.epub"))
	assert.Equal(t, 0, empty.Len())
}

func TestIndex_Equal(t *testing.T) {
	a := NewIndex("0/1/pg1.epub", "0/2/2.txt")

	assert.True(t, a.Equal(NewIndex("/0/2/2.txt", "0/1/pg1.epub")))
	assert.False(t, a.Equal(NewIndex("0/1/pg1.epub")))
	assert.False(t, a.Equal(NewIndex("0/1/pg1.epub", "0/3/3.txt")))

	var none *Index
	assert.NotPanics(t, func() {
		assert.True(t, none.Equal(NewIndex()))
		assert.True(t, NewIndex().Equal(none))
		assert.True(t, none.Equal(nil))
		assert.False(t, none.Equal(a))
		assert.False(t, a.Equal(none))
	})
}

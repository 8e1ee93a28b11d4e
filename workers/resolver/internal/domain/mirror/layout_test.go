package mirror

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedDir(t *testing.T) {
	tests := []struct {
		id       int
		expected string
	}{
		{id: 10023, expected: "1/0/0/2/10023"},
		{id: 11, expected: "1/11"},
		{id: 123, expected: "1/2/123"},
		{id: 10, expected: "0/10"},
		{id: 7, expected: "0/7"},
		{id: 1, expected: "0/1"},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.expected, ShardedDir(tt.id))
		})
	}
}

func TestShardedDir_SegmentCount(t *testing.T) {
	for _, id := range []int{11, 99, 100, 4567, 39765, 123456} {
		s := strconv.Itoa(id)
		segments := strings.Split(ShardedDir(id), "/")

		assert.Len(t, segments, len(s), "id %d", id)
		assert.Equal(t, s, segments[len(segments)-1])
		for i, seg := range segments[:len(segments)-1] {
			assert.Equal(t, string(s[i]), seg)
		}
	}
}

func TestPattern_Path(t *testing.T) {
	assert.Equal(t, "cache/epub/10023/pg10023.epub", Pattern{Base: BaseCache, Name: "pg10023.epub"}.Path(10023))
	assert.Equal(t, "1/0/0/2/10023/10023-h.zip", Pattern{Base: BaseSharded, Name: "10023-h.zip"}.Path(10023))
	assert.Equal(t, "etext/95/10023-h.htm", Pattern{Base: BaseEtext, Name: "95/10023-h.htm"}.Path(10023))
}

func TestLayout_URL(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, "http://aleph.pglaf.org/1/0/0/2/10023/pg10023.epub", l.URL("1/0/0/2/10023/pg10023.epub"))
	assert.Equal(t, "http://aleph.pglaf.org/etext/90/a.htm", l.URL("/etext/90/a.htm"))
	assert.Equal(t, "file_on_aleph_pglaf_org", l.ListingFile())
}

func TestLayout_Validate(t *testing.T) {
	assert.NoError(t, DefaultLayout().Validate())
	assert.Error(t, Layout{BaseURL: "aleph.pglaf.org", Name: "x"}.Validate())
	assert.Error(t, Layout{BaseURL: "http://aleph.pglaf.org/"}.Validate())
}

func TestLayout_ArchiveURL(t *testing.T) {
	l := Layout{BaseURL: "http://dante.pglaf.org/", Name: "dante"}

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "ebook flavor",
			in:       "https://www.gutenberg.org/ebooks/12345.html.images",
			expected: "http://dante.pglaf.org/cache/epub/12345/pg12345-images.html.utf8",
		},
		{
			name:     "epub3",
			in:       "https://www.gutenberg.org/ebooks/67735.epub3.images",
			expected: "http://dante.pglaf.org/cache/epub/67735/pg67735-images-3.epub",
		},
		{
			name:     "files tree",
			in:       "https://www.gutenberg.org/files/12345/12345-h/12345-h.htm",
			expected: "http://dante.pglaf.org/1/2/3/4/12345/12345-h/12345-h.htm",
		},
		{
			name:     "single digit files",
			in:       "https://www.gutenberg.org/files/7/7-h.zip",
			expected: "http://dante.pglaf.org/0/7/7-h.zip",
		},
		{
			name:     "cache path kept",
			in:       "https://www.gutenberg.org/cache/epub/67735/pg67735.cover.medium.jpg",
			expected: "http://dante.pglaf.org/cache/epub/67735/pg67735.cover.medium.jpg",
		},
		{
			name:     "unknown flavor falls through",
			in:       "https://www.gutenberg.org/ebooks/12345.unknown",
			expected: "http://dante.pglaf.org/ebooks/12345.unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.ArchiveURL(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, ok := l.ArchiveURL("")
	assert.False(t, ok)
}

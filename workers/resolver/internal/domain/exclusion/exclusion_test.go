package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmirror/workers/resolver/internal/domain/book"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Excluded(39765, book.FormatPDF))
	assert.True(t, s.Excluded(40194, book.FormatPDF))
	assert.False(t, s.Excluded(39765, book.FormatEPUB))
	assert.False(t, s.Excluded(1, book.FormatPDF))
}

func TestParse(t *testing.T) {
	t.Run("valid list", func(t *testing.T) {
		entries, err := Parse(" 123:epub, 456:PDF ,")
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{BookID: 123, Format: book.FormatEPUB},
			{BookID: 456, Format: book.FormatPDF},
		}, entries)
	})

	t.Run("empty", func(t *testing.T) {
		entries, err := Parse("")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	invalid := []string{"123", "abc:pdf", "0:pdf", "12:mobi"}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestSet_With(t *testing.T) {
	base := Default()
	extended := base.With(Entry{BookID: 5, Format: book.FormatHTML})

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, extended.Len())
	assert.True(t, extended.Excluded(5, book.FormatHTML))
	assert.Equal(t, 5, extended.Entries()[0].BookID)
}

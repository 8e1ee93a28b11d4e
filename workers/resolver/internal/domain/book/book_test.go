package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForMIME(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		expected Format
		ok       bool
	}{
		{name: "epub", mime: "application/epub+zip", expected: FormatEPUB, ok: true},
		{name: "html with charset", mime: "text/html; charset=utf-8", expected: FormatHTML, ok: true},
		{name: "pdf with spaces", mime: " application/pdf ", expected: FormatPDF, ok: true},
		{name: "plain text is unknown", mime: "text/plain; charset=us-ascii", ok: false},
		{name: "empty", mime: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatForMIME(tt.mime)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.MIME())

	_, err = ParseFormat("mobi")
	assert.Error(t, err)
}

func TestRef_DeclaredFormats(t *testing.T) {
	ref := Ref{
		ID: 10023,
		Files: []File{
			{Name: "10023-h.zip", MIME: "text/html; charset=iso-8859-1"},
			{Name: "pg10023.epub", MIME: "application/epub+zip"},
			{Name: "10023.txt", MIME: "text/plain"},
			{Name: "10023-h/10023-h.htm", MIME: "text/html"},
		},
	}

	assert.Equal(t, []Format{FormatEPUB, FormatHTML}, ref.DeclaredFormats())
	assert.Equal(t, []string{"10023-h.zip", "10023-h/10023-h.htm"}, ref.FileNames(FormatHTML))
	assert.Empty(t, ref.FileNames(FormatPDF))
}

func TestRef_WithFormats(t *testing.T) {
	ref := Ref{
		ID:       11,
		Language: "en",
		Files: []File{
			{Name: "pg11.epub", MIME: "application/epub+zip"},
			{Name: "11-h.htm", MIME: "text/html"},
			{Name: "11.txt", MIME: "text/plain"},
		},
	}

	only := ref.WithFormats(FormatHTML)
	assert.Equal(t, []Format{FormatHTML}, only.DeclaredFormats())
	assert.Equal(t, "en", only.Language)
	assert.Len(t, ref.Files, 3)

	assert.Equal(t, ref, ref.WithFormats())
}

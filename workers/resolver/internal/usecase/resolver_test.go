package usecase

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmirror/shared/application/mocks"
	"pgmirror/workers/resolver/internal/domain/book"
	"pgmirror/workers/resolver/internal/domain/candidate"
	"pgmirror/workers/resolver/internal/domain/exclusion"
	"pgmirror/workers/resolver/internal/domain/listing"
	"pgmirror/workers/resolver/internal/domain/mirror"
)

const mirrorURL = "http://aleph.pglaf.org/"

func newTestResolver(t *testing.T, paths ...string) *Resolver {
	t.Helper()
	r, err := NewResolver(
		mirror.DefaultLayout(),
		candidate.DefaultRules(),
		exclusion.Default(),
		NewIndexHolder(listing.NewIndex(paths...)),
		mocks.NewNopObservability(),
	)
	require.NoError(t, err)
	return r
}

func epubRef(id int) book.Ref {
	return book.Ref{ID: id, Files: []book.File{{Name: "pg.epub", MIME: "application/epub+zip"}}}
}

func TestResolver_ResolvesListedEpub(t *testing.T) {
	r := newTestResolver(t, "1/0/0/2/10023/pg10023.epub")

	res := r.Resolve(epubRef(10023))

	assert.Equal(t, 10023, res.BookID)
	assert.Equal(t, map[book.Format][]string{
		book.FormatEPUB: {mirrorURL + "1/0/0/2/10023/pg10023.epub"},
	}, res.URLs)
}

func TestResolver_KeepsCandidateOrder(t *testing.T) {
	r := newTestResolver(t,
		"1/0/0/2/10023/pg10023.epub",
		"cache/epub/10023/pg10023-images.epub",
		"cache/epub/10023/pg10023.epub",
	)

	res := r.Resolve(epubRef(10023))

	assert.Equal(t, []string{
		mirrorURL + "cache/epub/10023/pg10023.epub",
		mirrorURL + "cache/epub/10023/pg10023-images.epub",
		mirrorURL + "1/0/0/2/10023/pg10023.epub",
	}, res.URLs[book.FormatEPUB])
}

func TestResolver_NoHitsGiveEmptyLists(t *testing.T) {
	r := newTestResolver(t, "1/0/0/2/10023/pg10023.epub")

	ref := book.Ref{ID: 7, Files: []book.File{
		{Name: "pg7.epub", MIME: "application/epub+zip"},
		{Name: "7.pdf", MIME: "application/pdf"},
		{Name: "7-h.htm", MIME: "text/html"},
	}}
	res := r.Resolve(ref)

	require.Len(t, res.URLs, 3)
	for format, urls := range res.URLs {
		assert.NotNil(t, urls, format)
		assert.Empty(t, urls, format)
	}
}

func TestResolver_Exclusions(t *testing.T) {
	r := newTestResolver(t,
		"cache/epub/39765/39765-pdf.pdf",
		"cache/epub/39765/pg39765.epub",
	)

	ref := book.Ref{ID: 39765, Files: []book.File{
		{Name: "39765-pdf.pdf", MIME: "application/pdf"},
		{Name: "pg39765.epub", MIME: "application/epub+zip"},
	}}
	res := r.Resolve(ref)

	assert.Empty(t, res.URLs[book.FormatPDF])
	assert.Equal(t, []string{mirrorURL + "cache/epub/39765/pg39765.epub"}, res.URLs[book.FormatEPUB])
}

func TestResolver_NoHtmlCandidate(t *testing.T) {
	r := newTestResolver(t, "0/7/7-h.zip")

	ref := book.Ref{ID: 7, Files: []book.File{{Name: "7.zip", MIME: "text/html"}}}
	res := r.Resolve(ref)

	urls, ok := res.URLs[book.FormatHTML]
	require.True(t, ok)
	assert.Empty(t, urls)
}

func TestResolver_HtmlEtextLocations(t *testing.T) {
	r := newTestResolver(t, "etext/97/1234-h.htm", "1/2/3/1234/1234-h.zip")

	ref := book.Ref{ID: 1234, Files: []book.File{{Name: "1234-h.htm", MIME: "text/html; charset=utf-8"}}}
	res := r.Resolve(ref)

	assert.Equal(t, []string{
		mirrorURL + "1/2/3/1234/1234-h.zip",
		mirrorURL + "etext/97/1234-h.htm",
	}, res.URLs[book.FormatHTML])
}

func TestResolver_EveryURLIsListedAndDeterministic(t *testing.T) {
	paths := []string{
		"1/0/0/2/10023/pg10023.epub",
		"cache/epub/10023/10023-pdf.pdf",
		"1/0/0/2/10023/10023-h.htm",
		"etext/02/10023-h.htm",
	}
	r := newTestResolver(t, paths...)
	idx := listing.NewIndex(paths...)

	ref := book.Ref{ID: 10023, Files: []book.File{
		{Name: "pg10023.epub", MIME: "application/epub+zip"},
		{Name: "10023-pdf.pdf", MIME: "application/pdf"},
		{Name: "10023-h.htm", MIME: "text/html"},
	}}

	first := r.Resolve(ref)
	assert.Equal(t, first, r.Resolve(ref))

	total := 0
	for _, urls := range first.URLs {
		for _, u := range urls {
			total++
			assert.True(t, idx.Contains(strings.TrimPrefix(u, mirrorURL)), u)
		}
	}
	assert.Equal(t, 4, total)
}

func TestResolver_WithoutIndex(t *testing.T) {
	r, err := NewResolver(mirror.DefaultLayout(), candidate.DefaultRules(), exclusion.Default(), NewIndexHolder(nil), mocks.NewNopObservability())
	require.NoError(t, err)

	res := r.Resolve(epubRef(10023))
	assert.Empty(t, res.URLs[book.FormatEPUB])
}

func TestResolver_SeesSwappedIndex(t *testing.T) {
	holder := NewIndexHolder(listing.NewIndex())
	r, err := NewResolver(mirror.DefaultLayout(), candidate.DefaultRules(), exclusion.Default(), holder, mocks.NewNopObservability())
	require.NoError(t, err)

	assert.Empty(t, r.Resolve(epubRef(11)).URLs[book.FormatEPUB])

	previous := holder.Swap(listing.NewIndex("cache/epub/11/pg11.epub"))
	assert.Equal(t, 0, previous.Len())
	assert.Equal(t, []string{mirrorURL + "cache/epub/11/pg11.epub"}, r.Resolve(epubRef(11)).URLs[book.FormatEPUB])
}

func TestResolver_ResolveAllKeepsOrder(t *testing.T) {
	var paths []string
	var refs []book.Ref
	for id := 11; id < 60; id++ {
		refs = append(refs, epubRef(id))
		if id%2 == 0 {
			paths = append(paths, mirror.CacheDir(id)+"/pg"+strconv.Itoa(id)+".epub")
		}
	}
	r := newTestResolver(t, paths...)

	out, err := r.ResolveAll(context.Background(), refs, 4)
	require.NoError(t, err)
	require.Len(t, out, len(refs))

	for i, res := range out {
		assert.Equal(t, refs[i].ID, res.BookID)
		assert.Equal(t, res.BookID%2 == 0, len(res.URLs[book.FormatEPUB]) == 1)
	}
}

func TestResolver_ResolveAllCancelled(t *testing.T) {
	r := newTestResolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.ResolveAll(ctx, []book.Ref{epubRef(11), epubRef(12)}, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestResolver_ResolveAllEmpty(t *testing.T) {
	out, err := newTestResolver(t).ResolveAll(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

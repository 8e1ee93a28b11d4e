package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pgmirror/shared/application/mocks"
	"pgmirror/shared/application/ports"
	"pgmirror/workers/resolver/internal/domain/book"
)

func newTestHandler(t *testing.T, catalog ports.Catalog, queue ports.Queue) *ResolveHandler {
	t.Helper()
	r := newTestResolver(t,
		"1/0/0/2/10023/pg10023.epub",
		"cache/epub/10023/10023-pdf.pdf",
		"1/11/11-h.htm",
	)
	h, err := NewResolveHandler(catalog, r, queue, HandlerConfig{FetchQueue: "fetch", Concurrency: 2}, mocks.NewNopObservability())
	require.NoError(t, err)
	return h
}

func request(payload string) ports.RuntimeRequest {
	return ports.RuntimeRequest{ID: "req-1", Source: "http", Payload: json.RawMessage(payload)}
}

var catalogBooks = []ports.CatalogBook{
	{ID: 11, Language: "en", Files: []ports.CatalogFile{{Name: "11-h.htm", MIME: "text/html"}}},
	{ID: 10023, Language: "en", Files: []ports.CatalogFile{
		{Name: "pg10023.epub", MIME: "application/epub+zip"},
		{Name: "10023-pdf.pdf", MIME: "application/pdf"},
	}},
}

func TestResolveHandler_ResolvesAndPublishes(t *testing.T) {
	catalog := &mocks.MockCatalog{}
	catalog.On("Books", mock.Anything, ports.BookQuery{
		IDs:          []int{11, 10023},
		MIMEPrefixes: []string{"application/epub+zip", "application/pdf", "text/html"},
	}).Return(catalogBooks, nil)

	queue := &mocks.MockQueue{}
	queue.On("PublishBatch", mock.Anything, mock.MatchedBy(func(msgs []*ports.QueueMessage) bool {
		return len(msgs) == 2 &&
			msgs[0].Target == "fetch" &&
			msgs[0].Attributes["type"] == "resolution" &&
			msgs[1].Attributes["request_id"] == "req-1"
	})).Return(nil)

	resp, err := newTestHandler(t, catalog, queue).Handle(context.Background(), request(`{"book_ids":[11,10023]}`))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var out ResolveResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, "req-1", out.RequestID)
	require.Len(t, out.Resolutions, 2)
	assert.Equal(t, []string{mirrorURL + "1/11/11-h.htm"}, out.Resolutions[0].URLs[book.FormatHTML])
	assert.Equal(t, []string{mirrorURL + "1/0/0/2/10023/pg10023.epub"}, out.Resolutions[1].URLs[book.FormatEPUB])
	assert.Equal(t, []string{mirrorURL + "cache/epub/10023/10023-pdf.pdf"}, out.Resolutions[1].URLs[book.FormatPDF])

	catalog.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestResolveHandler_RequestedFormatsOnly(t *testing.T) {
	catalog := &mocks.MockCatalog{}
	catalog.On("Books", mock.Anything, ports.BookQuery{
		Languages:    []string{"en"},
		MIMEPrefixes: []string{"application/pdf"},
	}).Return(catalogBooks[1:], nil)

	resp, err := newTestHandler(t, catalog, nil).Handle(context.Background(), request(`{"languages":["en"],"formats":["pdf"]}`))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var out ResolveResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	require.Len(t, out.Resolutions, 1)
	assert.Len(t, out.Resolutions[0].URLs, 1)
	assert.Contains(t, out.Resolutions[0].URLs, book.FormatPDF)
}

func TestResolveHandler_InvalidPayloads(t *testing.T) {
	tests := map[string]string{
		"not an object":  `[1,2]`,
		"unknown format": `{"formats":["mobi"]}`,
		"bad book id":    `{"book_ids":[0]}`,
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			catalog := &mocks.MockCatalog{}
			resp, err := newTestHandler(t, catalog, nil).Handle(context.Background(), request(payload))
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			catalog.AssertNotCalled(t, "Books", mock.Anything, mock.Anything)
		})
	}
}

func TestResolveHandler_CatalogError(t *testing.T) {
	catalog := &mocks.MockCatalog{}
	catalog.On("Books", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := newTestHandler(t, catalog, nil).Handle(context.Background(), request(`{"book_ids":[11]}`))
	assert.ErrorContains(t, err, "connection refused")
}

func TestResolveHandler_PublishError(t *testing.T) {
	catalog := &mocks.MockCatalog{}
	catalog.On("Books", mock.Anything, mock.Anything).Return(catalogBooks, nil)
	queue := &mocks.MockQueue{}
	queue.On("PublishBatch", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	_, err := newTestHandler(t, catalog, queue).Handle(context.Background(), request(`{}`))
	assert.ErrorContains(t, err, "channel closed")
}

func TestResolveHandler_NoBooks(t *testing.T) {
	catalog := &mocks.MockCatalog{}
	catalog.On("Books", mock.Anything, mock.Anything).Return([]ports.CatalogBook{}, nil)
	queue := &mocks.MockQueue{}

	resp, err := newTestHandler(t, catalog, queue).Handle(context.Background(), request(`{"book_ids":[99999]}`))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	queue.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)
}

func TestToRef(t *testing.T) {
	ref := ToRef(catalogBooks[1], book.FormatEPUB)
	assert.Equal(t, book.Ref{ID: 10023, Language: "en", Files: []book.File{{Name: "pg10023.epub", MIME: "application/epub+zip"}}}, ref)
}

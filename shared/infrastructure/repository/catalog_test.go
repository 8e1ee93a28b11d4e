package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pgmirror/shared/application/mocks"
	"pgmirror/shared/application/ports"
)

func newTestCatalog(db ports.Database) *CatalogRepository {
	repos, _ := NewRepositories(db, mocks.NewNopObservability())
	return repos.catalog
}

func TestCatalogRepository_BooksQuery(t *testing.T) {
	repo := newTestCatalog(&mocks.MockDatabase{})

	sql, args, err := repo.booksQuery(ports.BookQuery{
		IDs:          []int{11, 10023},
		Languages:    []string{"en"},
		MIMEPrefixes: []string{"application/pdf", "text/html"},
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM book b JOIN book_format bf ON bf.book_id = b.id JOIN format f ON f.id = bf.format_id")
	assert.Contains(t, sql, "b.id IN ($1,$2)")
	assert.Contains(t, sql, "b.language IN ($3)")
	assert.Contains(t, sql, "sf.mime LIKE $4 OR sf.mime LIKE $5")
	assert.Contains(t, sql, "ORDER BY b.id, f.id")
	assert.Equal(t, []interface{}{11, 10023, "en", "application/pdf%", "text/html%"}, args)
}

func TestCatalogRepository_BooksQueryWithoutFilters(t *testing.T) {
	repo := newTestCatalog(&mocks.MockDatabase{})

	sql, args, err := repo.booksQuery(ports.BookQuery{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestCatalogRepository_BooksGroupsFiles(t *testing.T) {
	db := &mocks.MockDatabase{}
	db.On("Select", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*[]catalogRow)
			*dest = []catalogRow{
				{ID: 11, Language: "en", MIME: "application/epub+zip", Pattern: "pg{id}.epub"},
				{ID: 11, Language: "en", MIME: "text/html", Pattern: "{id}-h.htm"},
				{ID: 10023, Language: "fr", MIME: "application/pdf", Pattern: "{id}.pdf"},
			}
		}).
		Return(nil)

	books, err := newTestCatalog(db).Books(context.Background(), ports.BookQuery{})
	require.NoError(t, err)

	assert.Equal(t, []ports.CatalogBook{
		{ID: 11, Language: "en", Files: []ports.CatalogFile{
			{Name: "pg11.epub", MIME: "application/epub+zip"},
			{Name: "11-h.htm", MIME: "text/html"},
		}},
		{ID: 10023, Language: "fr", Files: []ports.CatalogFile{
			{Name: "10023.pdf", MIME: "application/pdf"},
		}},
	}, books)
}

func TestCatalogRepository_BooksError(t *testing.T) {
	db := &mocks.MockDatabase{}
	db.On("Select", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	books, err := newTestCatalog(db).Books(context.Background(), ports.BookQuery{IDs: []int{1}})
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, books)
}

func TestCatalogRepository_SubqueryBuildErrorSurfaces(t *testing.T) {
	db := &mocks.MockDatabase{}
	repo := newTestCatalog(db)

	// a subquery without result columns cannot be rendered
	query := repo.qb.Select("b.id").From("book b").
		Where(squirrel.Expr("b.id IN (?)", squirrel.Select().From("book_format")))

	var rows []catalogRow
	err := repo.selectInto(context.Background(), "books", &rows, query)
	assert.ErrorContains(t, err, "build query")
	db.AssertNotCalled(t, "Select", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

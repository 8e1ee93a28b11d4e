package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"

	"pgmirror/shared/application/ports"
)

// catalogRow is one declared file of a book
type catalogRow struct {
	ID       int    `db:"id"`
	Language string `db:"language"`
	MIME     string `db:"mime"`
	Pattern  string `db:"pattern"`
}

// CatalogRepository reads books and their declared files from the
// book, format and book_format tables.
type CatalogRepository struct {
	*baseRepository
}

func (r *CatalogRepository) Books(ctx context.Context, q ports.BookQuery) ([]ports.CatalogBook, error) {
	var rows []catalogRow
	if err := r.selectInto(ctx, "books", &rows, r.booksQuery(q)); err != nil {
		return nil, err
	}

	books := groupBooks(rows)
	r.logger.Info("Catalog books loaded", "books", len(books), "files", len(rows))
	return books, nil
}

// booksQuery selects every declared file of the matching books. The MIME
// filter picks books, not files: a book declaring a PDF keeps its HTML
// files too.
func (r *CatalogRepository) booksQuery(q ports.BookQuery) squirrel.SelectBuilder {
	query := r.qb.
		Select("b.id", "COALESCE(b.language, '') AS language", "f.mime", "f.pattern").
		From("book b").
		Join("book_format bf ON bf.book_id = b.id").
		Join("format f ON f.id = bf.format_id").
		OrderBy("b.id", "f.id")

	if len(q.IDs) > 0 {
		query = query.Where(squirrel.Eq{"b.id": q.IDs})
	}
	if len(q.Languages) > 0 {
		query = query.Where(squirrel.Eq{"b.language": q.Languages})
	}
	if len(q.MIMEPrefixes) > 0 {
		match := squirrel.Or{}
		for _, prefix := range q.MIMEPrefixes {
			match = append(match, squirrel.Like{"sf.mime": prefix + "%"})
		}
		// placeholders are renumbered by the outer builder
		sub := squirrel.
			Select("sbf.book_id").
			From("book_format sbf").
			Join("format sf ON sf.id = sbf.format_id").
			Where(match)
		query = query.Where(squirrel.Expr("b.id IN (?)", sub))
	}
	return query
}

// groupBooks folds ordered rows into books, expanding "{id}" in patterns
func groupBooks(rows []catalogRow) []ports.CatalogBook {
	var books []ports.CatalogBook
	for _, row := range rows {
		if len(books) == 0 || books[len(books)-1].ID != row.ID {
			books = append(books, ports.CatalogBook{ID: row.ID, Language: row.Language})
		}
		last := &books[len(books)-1]
		last.Files = append(last.Files, ports.CatalogFile{
			Name: expand(row.Pattern, row.ID),
			MIME: row.MIME,
		})
	}
	return books
}

func expand(pattern string, id int) string {
	return strings.ReplaceAll(pattern, "{id}", strconv.Itoa(id))
}

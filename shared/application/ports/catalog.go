package ports

import "context"

// BookQuery selects catalog books. Empty fields do not filter.
type BookQuery struct {
	IDs       []int
	Languages []string
	// MIMEPrefixes keeps books declaring at least one file whose MIME type
	// starts with one of the prefixes.
	MIMEPrefixes []string
}

// CatalogFile is a file a book declares, with "{id}" already expanded.
type CatalogFile struct {
	Name string `db:"name" json:"name"`
	MIME string `db:"mime" json:"mime"`
}

// CatalogBook is a book with its declared files.
type CatalogBook struct {
	ID       int           `json:"id"`
	Language string        `json:"language"`
	Files    []CatalogFile `json:"files"`
}

// Catalog is the read side of the book catalog.
type Catalog interface {
	// Books returns the matching books ordered by id.
	Books(ctx context.Context, q BookQuery) ([]CatalogBook, error)
}

package usecase

import (
	"fmt"

	"pgmirror/shared/application/ports"
	"pgmirror/workers/resolver/internal/domain/book"
)

// ResolveRequest is the payload of a resolve request. Empty lists do not
// filter; no formats means every supported format.
type ResolveRequest struct {
	BookIDs   []int    `json:"book_ids"`
	Languages []string `json:"languages"`
	Formats   []string `json:"formats"`
}

// formats parses the requested formats, defaulting to all of them
func (r ResolveRequest) formats() ([]book.Format, error) {
	if len(r.Formats) == 0 {
		return book.Formats, nil
	}
	out := make([]book.Format, 0, len(r.Formats))
	for _, name := range r.Formats {
		f, err := book.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r ResolveRequest) validate() error {
	for _, id := range r.BookIDs {
		if id <= 0 {
			return fmt.Errorf("invalid book id: %d", id)
		}
	}
	_, err := r.formats()
	return err
}

// Query builds the catalog query for the request
func (r ResolveRequest) Query() (ports.BookQuery, []book.Format, error) {
	if err := r.validate(); err != nil {
		return ports.BookQuery{}, nil, err
	}
	formats, _ := r.formats()

	mimes := make([]string, len(formats))
	for i, f := range formats {
		mimes[i] = f.MIME()
	}
	return ports.BookQuery{
		IDs:          r.BookIDs,
		Languages:    r.Languages,
		MIMEPrefixes: mimes,
	}, formats, nil
}

// ToRef converts a catalog book, keeping only files of the given formats
func ToRef(b ports.CatalogBook, formats ...book.Format) book.Ref {
	ref := book.Ref{ID: b.ID, Language: b.Language, Files: make([]book.File, len(b.Files))}
	for i, f := range b.Files {
		ref.Files[i] = book.File{Name: f.Name, MIME: f.MIME}
	}
	return ref.WithFormats(formats...)
}

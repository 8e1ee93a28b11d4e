package book

import (
	"fmt"
	"strings"
)

// Format is a downloadable content format the resolver knows how to locate.
type Format string

const (
	FormatEPUB Format = "epub"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Formats lists the supported formats in resolution order.
var Formats = []Format{FormatEPUB, FormatPDF, FormatHTML}

var mimeByFormat = map[Format]string{
	FormatEPUB: "application/epub+zip",
	FormatPDF:  "application/pdf",
	FormatHTML: "text/html",
}

// MIME returns the catalog MIME type of the format.
func (f Format) MIME() string {
	return mimeByFormat[f]
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat accepts a format name ("pdf") and returns the matching Format.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := mimeByFormat[f]; !ok {
		return "", fmt.Errorf("unknown format: %q", name)
	}
	return f, nil
}

// FormatForMIME maps a catalog MIME type, parameters included, to a Format.
func FormatForMIME(mime string) (Format, bool) {
	base := StripMIMEParams(mime)
	for _, f := range Formats {
		if mimeByFormat[f] == base {
			return f, true
		}
	}
	return "", false
}

// StripMIMEParams drops parameters such as "; charset=utf-8".
func StripMIMEParams(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(mime)
}

// File is one catalog-declared file of a book.
type File struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
}

// Ref is a read-only view of a catalog book.
type Ref struct {
	ID       int    `json:"id"`
	Language string `json:"language,omitempty"`
	Files    []File `json:"files"`
}

// DeclaredFormats returns the supported formats the book declares, in
// resolution order. Unknown MIME types are ignored.
func (r Ref) DeclaredFormats() []Format {
	seen := make(map[Format]bool, len(Formats))
	for _, file := range r.Files {
		if f, ok := FormatForMIME(file.MIME); ok {
			seen[f] = true
		}
	}

	formats := make([]Format, 0, len(seen))
	for _, f := range Formats {
		if seen[f] {
			formats = append(formats, f)
		}
	}
	return formats
}

// FileNames returns the known file names declared for a format, in catalog order.
func (r Ref) FileNames(f Format) []string {
	var names []string
	for _, file := range r.Files {
		if got, ok := FormatForMIME(file.MIME); ok && got == f {
			names = append(names, file.Name)
		}
	}
	return names
}

// WithFormats returns a copy of the ref keeping only files of the given
// formats. Without formats the ref is returned unchanged.
func (r Ref) WithFormats(formats ...Format) Ref {
	if len(formats) == 0 {
		return r
	}
	keep := make(map[Format]bool, len(formats))
	for _, f := range formats {
		keep[f] = true
	}

	out := Ref{ID: r.ID, Language: r.Language}
	for _, file := range r.Files {
		if f, ok := FormatForMIME(file.MIME); ok && keep[f] {
			out.Files = append(out.Files, file)
		}
	}
	return out
}

// Package exclusion lists the (book, format) pairs the resolver never
// returns links for.
package exclusion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pgmirror/workers/resolver/internal/domain/book"
)

// Entry denies one format of one book.
type Entry struct {
	BookID int
	Format book.Format
}

// Set is an immutable deny-list of (book, format) pairs.
type Set struct {
	entries map[Entry]struct{}
}

// defaults are books whose pdf on the mirror is known to be broken.
var defaults = []Entry{
	{BookID: 39765, Format: book.FormatPDF},
	{BookID: 40194, Format: book.FormatPDF},
}

// New builds a set from entries.
func New(entries ...Entry) Set {
	m := make(map[Entry]struct{}, len(entries))
	for _, e := range entries {
		m[e] = struct{}{}
	}
	return Set{entries: m}
}

// Default returns the built-in deny-list.
func Default() Set {
	return New(defaults...)
}

// Parse reads a comma separated "id:format" list, e.g. "39765:pdf,123:epub".
func Parse(s string) ([]Entry, error) {
	var entries []Entry
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idPart, fmtPart, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid exclusion %q: expected id:format", item)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid exclusion %q: bad book id", item)
		}
		f, err := book.ParseFormat(fmtPart)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion %q: %w", item, err)
		}
		entries = append(entries, Entry{BookID: id, Format: f})
	}
	return entries, nil
}

// With returns a new set containing the receiver's entries plus extra.
func (s Set) With(extra ...Entry) Set {
	return New(append(s.Entries(), extra...)...)
}

// Excluded reports whether the format of the book is denied.
func (s Set) Excluded(bookID int, f book.Format) bool {
	_, ok := s.entries[Entry{BookID: bookID, Format: f}]
	return ok
}

// Len returns the number of entries.
func (s Set) Len() int {
	return len(s.entries)
}

// Entries returns the entries sorted by book id then format.
func (s Set) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookID != out[j].BookID {
			return out[i].BookID < out[j].BookID
		}
		return out[i].Format < out[j].Format
	})
	return out
}

// Package candidate enumerates the mirror paths where a book file may live.
//
// Each rule encodes the naming conventions the mirror has used over the years
// for one format. Rules only propose paths; nothing here checks whether a path
// exists.
package candidate

import (
	"fmt"
	"strconv"

	"pgmirror/workers/resolver/internal/domain/book"
	"pgmirror/workers/resolver/internal/domain/mirror"
)

// Candidate is one proposed location for a book file.
type Candidate struct {
	Format book.Format
	Path   string
	Rule   string
}

// Rule generates candidates for a single format.
type Rule interface {
	Format() book.Format
	Generate(id int, known []string) ([]Candidate, error)
}

// NoHtmlCandidateError is returned when a book declares html but none of its
// known file names looks like an html document.
type NoHtmlCandidateError struct {
	BookID int
}

func (e *NoHtmlCandidateError) Error() string {
	return fmt.Sprintf("book %d: no html or htm file among known names", e.BookID)
}

// DefaultRules returns the epub, pdf and html rules keyed by format.
func DefaultRules() map[book.Format]Rule {
	return map[book.Format]Rule{
		book.FormatEPUB: EPUBRule{},
		book.FormatPDF:  PDFRule{},
		book.FormatHTML: HTMLRule{},
	}
}

// builder accumulates candidates, dropping repeated paths but keeping the
// position of their first occurrence.
type builder struct {
	id     int
	format book.Format
	rule   string
	seen   map[string]struct{}
	out    []Candidate
}

func newBuilder(id int, format book.Format, rule string) *builder {
	return &builder{
		id:     id,
		format: format,
		rule:   rule,
		seen:   make(map[string]struct{}),
	}
}

func (b *builder) add(base mirror.Base, name string) {
	p := mirror.Pattern{Base: base, Name: name}.Path(b.id)
	if _, ok := b.seen[p]; ok {
		return
	}
	b.seen[p] = struct{}{}
	b.out = append(b.out, Candidate{Format: b.format, Path: p, Rule: b.rule})
}

func (b *builder) candidates() []Candidate {
	return b.out
}

func idString(id int) string {
	return strconv.Itoa(id)
}

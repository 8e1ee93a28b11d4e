package candidate

import (
	"strings"

	"pgmirror/workers/resolver/internal/domain/book"
	"pgmirror/workers/resolver/internal/domain/mirror"
)

// EPUBRule proposes the generated epub variants. The cache tree is where
// current mirrors publish them; older books also carry copies in their
// sharded directory.
type EPUBRule struct{}

func (EPUBRule) Format() book.Format { return book.FormatEPUB }

func (r EPUBRule) Generate(id int, _ []string) ([]Candidate, error) {
	b := newBuilder(id, book.FormatEPUB, "epub")
	name := "pg" + idString(id)

	for _, base := range []mirror.Base{mirror.BaseCache, mirror.BaseSharded} {
		b.add(base, name+".epub")
		b.add(base, name+"-images.epub")
		b.add(base, name+"-noimages.epub")
	}
	return b.candidates(), nil
}

// PDFRule proposes the declared pdf names plus the fixed historical variants.
// Names mentioning "images" are image-bundle variants and are skipped.
type PDFRule struct{}

func (PDFRule) Format() book.Format { return book.FormatPDF }

func (r PDFRule) Generate(id int, known []string) ([]Candidate, error) {
	b := newBuilder(id, book.FormatPDF, "pdf")
	s := idString(id)

	for _, name := range known {
		if strings.Contains(name, "images") {
			continue
		}
		b.add(mirror.BaseSharded, name)
		b.add(mirror.BaseCache, name)
	}

	b.add(mirror.BaseCache, s+"-pdf.pdf")
	b.add(mirror.BaseSharded, s+"-pdf.pdf")
	b.add(mirror.BaseCache, s+".pdf")
	b.add(mirror.BaseCache, "pg"+s+".pdf")
	return b.candidates(), nil
}

// etextYears is the fixed set of year directories of the legacy etext tree.
var etextYears = []string{
	"90", "91", "92", "93", "94", "95", "96", "97", "98", "99",
	"00", "01", "02", "03", "04", "05",
}

// HTMLRule proposes html archives and pages in the sharded tree, the cached
// utf8 rendering, and the legacy etext locations of the first html name.
type HTMLRule struct{}

func (HTMLRule) Format() book.Format { return book.FormatHTML }

func (r HTMLRule) Generate(id int, known []string) ([]Candidate, error) {
	b := newBuilder(id, book.FormatHTML, "html")
	s := idString(id)

	if !hasSuffix(known, "-h.html") && hasSuffix(known, "-h.zip") {
		for _, name := range known {
			b.add(mirror.BaseSharded, name)
		}
	}

	b.add(mirror.BaseSharded, s+"-h.zip")
	b.add(mirror.BaseSharded, s+"-h.htm")
	b.add(mirror.BaseSharded, s+"-h.html")
	b.add(mirror.BaseCache, "pg"+s+".html.utf8")

	name, ok := firstContaining(known, "html", "htm")
	if !ok {
		return nil, &NoHtmlCandidateError{BookID: id}
	}
	for _, year := range etextYears {
		b.add(mirror.BaseEtext, year+"/"+name)
	}
	return b.candidates(), nil
}

func hasSuffix(names []string, suffix string) bool {
	for _, n := range names {
		if strings.HasSuffix(n, suffix) {
			return true
		}
	}
	return false
}

func firstContaining(names []string, subs ...string) (string, bool) {
	for _, n := range names {
		for _, sub := range subs {
			if strings.Contains(n, sub) {
				return n, true
			}
		}
	}
	return "", false
}

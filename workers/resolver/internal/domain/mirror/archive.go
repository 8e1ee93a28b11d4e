package mirror

import (
	"net/url"
	"regexp"
	"strings"
)

// archiveFiles maps website download flavors to their cache file names.
var archiveFiles = map[string]string{
	"html.noimages":   "pg{id}.html.utf8",
	"html.images":     "pg{id}-images.html.utf8",
	"epub.noimages":   "pg{id}.epub",
	"epub.images":     "pg{id}-images.epub",
	"epub3.images":    "pg{id}-images-3.epub",
	"kindle.noimages": "pg{id}.mobi",
	"kindle.images":   "pg{id}-images.mobi",
	"kf8.images":      "pg{id}-images-kf8.mobi",
	"pdf.noimages":    "pg{id}.pdf",
	"pdf.images":      "pg{id}-images.pdf",
	"txt.utf-8":       "pg{id}.txt.utf8",
	"rdf":             "pg{id}.rdf",
	"rst.gen":         "pg{id}.rst.utf8",
}

var (
	matchEbook = regexp.MustCompile(`/ebooks/(\d+)\.([^?#]*)`)
	matchFiles = regexp.MustCompile(`/files/(\d+)/([^?#]*)`)
)

// ArchiveURL translates a canonical gutenberg.org URL into the equivalent
// location on this mirror. Website paths are rewritten by the PG web servers
// and do not exist verbatim on rsync mirrors.
func (l Layout) ArchiveURL(pgURL string) (string, bool) {
	if pgURL == "" {
		return "", false
	}
	u, err := url.Parse(pgURL)
	if err != nil {
		return "", false
	}
	p := u.Path

	if m := matchEbook.FindStringSubmatch(p); m != nil {
		if name, ok := archiveFiles[m[2]]; ok {
			return l.URL("cache/epub/" + m[1] + "/" + strings.ReplaceAll(name, "{id}", m[1])), true
		}
	}
	if m := matchFiles.FindStringSubmatch(p); m != nil {
		return l.URL(archiveDir(m[1]) + "/" + m[2]), true
	}
	return l.URL(p), true
}

// archiveDir is the website's own sharding rule; unlike ShardedDir it only
// special-cases single digit ids.
func archiveDir(id string) string {
	if len(id) == 1 {
		return "0/" + id
	}
	parts := strings.Split(id, "")
	parts[len(parts)-1] = id
	return strings.Join(parts, "/")
}

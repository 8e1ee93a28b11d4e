// Package mirror describes where a Project Gutenberg mirror keeps book files.
//
// Paths produced here are relative to the mirror root ("1/0/0/2/10023/pg10023.epub")
// and are what the listing index stores. A Layout turns them into absolute URLs.
package mirror

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

const (
	DefaultBaseURL  = "http://aleph.pglaf.org/"
	DefaultRsyncURL = "rsync://aleph.pglaf.org/gutenberg/"
	DefaultName     = "aleph_pglaf_org"
)

// Layout is the immutable description of one mirror.
type Layout struct {
	BaseURL  string
	RsyncURL string
	Name     string
}

// DefaultLayout returns the layout of aleph.pglaf.org.
func DefaultLayout() Layout {
	return Layout{
		BaseURL:  DefaultBaseURL,
		RsyncURL: DefaultRsyncURL,
		Name:     DefaultName,
	}
}

// Validate reports whether the layout can build URLs.
func (l Layout) Validate() error {
	u, err := url.Parse(l.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid mirror base url %q: %w", l.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("mirror base url %q must be absolute", l.BaseURL)
	}
	if l.Name == "" {
		return fmt.Errorf("mirror name is required")
	}
	return nil
}

// URL joins a relative mirror path onto the base URL.
func (l Layout) URL(rel string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/" + strings.TrimLeft(rel, "/")
}

// ListingFile is the name under which the raw rsync listing is stored.
func (l Layout) ListingFile() string {
	return "file_on_" + l.Name
}

// SnapshotFile is the name under which the built index is stored.
func (l Layout) SnapshotFile() string {
	return l.Name + ".snapshot.gz"
}

// Base selects one of the directory conventions used on the mirror.
type Base int

const (
	// BaseSharded is the numeric-sharded tree: 10023 -> 1/0/0/2/10023.
	BaseSharded Base = iota
	// BaseCache is the generated-files tree: cache/epub/10023.
	BaseCache
	// BaseEtext is the legacy etext tree, keyed by year rather than id.
	BaseEtext
)

func (b Base) String() string {
	switch b {
	case BaseSharded:
		return "sharded"
	case BaseCache:
		return "cache"
	case BaseEtext:
		return "etext"
	default:
		return "unknown"
	}
}

// Dir returns the directory of a book under this base.
func (b Base) Dir(id int) string {
	switch b {
	case BaseCache:
		return CacheDir(id)
	case BaseEtext:
		return EtextDir
	default:
		return ShardedDir(id)
	}
}

// Pattern is a file name placed under a base directory.
type Pattern struct {
	Base Base
	Name string
}

// Path returns the mirror-relative path of the pattern for a book.
func (p Pattern) Path(id int) string {
	return path.Join(p.Base.Dir(id), p.Name)
}

const EtextDir = "etext"

// ShardedDir returns the sharded directory of a book id. Ids above 10 get one
// segment per digit except the last, followed by the full id. Smaller ids live
// under "0".
func ShardedDir(id int) string {
	s := strconv.Itoa(id)
	if id <= 10 {
		return "0/" + s
	}

	segments := make([]string, 0, len(s))
	for _, r := range s[:len(s)-1] {
		segments = append(segments, string(r))
	}
	segments = append(segments, s)
	return strings.Join(segments, "/")
}

// CacheDir returns the cache directory of a book id.
func CacheDir(id int) string {
	return "cache/epub/" + strconv.Itoa(id)
}

// Package listing turns the mirror's rsync file listing into an index of the
// files that actually exist on the mirror.
package listing

import (
	"sort"
	"strconv"
	"strings"
)

// Index is the set of mirror-relative paths of regular files seen in a
// listing. It is never mutated once Build or ReadSnapshot returns it, so it
// can be shared between goroutines.
type Index struct {
	paths map[string]struct{}
}

// NewIndex builds an index from already normalized paths.
func NewIndex(paths ...string) *Index {
	idx := &Index{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		idx.paths[normalize(p)] = struct{}{}
	}
	return idx
}

// Contains reports whether the path was listed on the mirror.
func (i *Index) Contains(path string) bool {
	if i == nil {
		return false
	}
	_, ok := i.paths[normalize(path)]
	return ok
}

// Len returns the number of indexed paths.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.paths)
}

// Paths returns all indexed paths in lexical order.
func (i *Index) Paths() []string {
	if i == nil {
		return nil
	}
	out := make([]string, 0, len(i.paths))
	for p := range i.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both indexes hold the same paths.
func (i *Index) Equal(other *Index) bool {
	if i == nil || other == nil {
		return i.Len() == other.Len()
	}
	if i.Len() != other.Len() {
		return false
	}
	for p := range i.paths {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

func normalize(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), "/")
}

// ScopeKey identifies the book selection an index was built for. An empty
// selection is the whole mirror and is written as "*".
func ScopeKey(ids []int) string {
	if len(ids) == 0 {
		return "*"
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	parts := make([]string, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

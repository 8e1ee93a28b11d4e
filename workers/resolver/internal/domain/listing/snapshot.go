package listing

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const snapshotMagic = "pgmirror-index v1"

// SnapshotHeader describes a persisted index.
type SnapshotHeader struct {
	Count int
	Scope string
}

// WriteSnapshot persists the index as gzip compressed text: one header line
// followed by one path per line in lexical order.
func WriteSnapshot(w io.Writer, idx *Index, scope []int) error {
	zw := gzip.NewWriter(w)
	bw := bufio.NewWriter(zw)

	if _, err := fmt.Fprintf(bw, "%s count=%d scope=%s\n", snapshotMagic, idx.Len(), ScopeKey(scope)); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, p := range idx.Paths() {
		if _, err := bw.WriteString(p); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads an index written by WriteSnapshot. A truncated or
// foreign stream fails with ErrBadSnapshot.
func ReadSnapshot(r io.Reader) (*Index, SnapshotHeader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, SnapshotHeader{}, errBadSnapshot("open: %v", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, SnapshotHeader{}, errBadSnapshot("missing header")
	}
	header, err := parseHeader(sc.Text())
	if err != nil {
		return nil, SnapshotHeader{}, err
	}

	idx := &Index{paths: make(map[string]struct{}, header.Count)}
	for sc.Scan() {
		if p := sc.Text(); p != "" {
			idx.paths[p] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, header, errBadSnapshot("read: %v", err)
	}
	if idx.Len() != header.Count {
		return nil, header, errBadSnapshot("header announces %d paths, found %d", header.Count, idx.Len())
	}
	return idx, header, nil
}

func parseHeader(line string) (SnapshotHeader, error) {
	if !strings.HasPrefix(line, snapshotMagic+" ") {
		return SnapshotHeader{}, errBadSnapshot("unknown header %q", line)
	}

	var h SnapshotHeader
	countSeen := false
	for _, field := range strings.Fields(strings.TrimPrefix(line, snapshotMagic)) {
		key, value, _ := strings.Cut(field, "=")
		switch key {
		case "count":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return SnapshotHeader{}, errBadSnapshot("bad count %q", value)
			}
			h.Count = n
			countSeen = true
		case "scope":
			h.Scope = value
		}
	}
	if !countSeen || h.Scope == "" {
		return SnapshotHeader{}, errBadSnapshot("incomplete header %q", line)
	}
	return h, nil
}

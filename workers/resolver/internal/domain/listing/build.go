package listing

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultMarker        = "GUTINDEX"
	DefaultBatchLines    = 4096
	DefaultBufferBatches = 16
	DefaultProgressEvery = 100000

	// The marker sits near the top of a real listing.
	DefaultMaxPendingLines = 10000
)

// BuildOptions tunes a listing ingestion.
type BuildOptions struct {
	// Marker is a file name known to sit at the mirror root. Its column in
	// the first line that contains it is where relative paths start.
	Marker string

	// Scope restricts the index to lines mentioning "/{id}/" for one of these
	// ids. The filter is coarse: it may keep unrelated paths, it never drops
	// a file under a scoped book's directory.
	Scope []int

	BatchLines    int
	BufferBatches int

	// MaxPendingLines bounds the lines held while the marker is unknown.
	// More lines than that without the marker fail the build.
	MaxPendingLines int

	// Progress, when set, is called every ProgressEvery processed lines.
	Progress      func(Stats)
	ProgressEvery int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.BatchLines <= 0 {
		o.BatchLines = DefaultBatchLines
	}
	if o.BufferBatches <= 0 {
		o.BufferBatches = DefaultBufferBatches
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.MaxPendingLines <= 0 {
		o.MaxPendingLines = DefaultMaxPendingLines
	}
	return o
}

// Stats counts what happened to each listing line.
type Stats struct {
	Processed   int `json:"processed"`
	Directories int `json:"directories"`
	Old         int `json:"old"`
	OutOfScope  int `json:"out_of_scope"`
	Malformed   int `json:"malformed"`
	Duplicates  int `json:"duplicates"`
	Lossy       int `json:"lossy"`
	Added       int `json:"added"`
}

type rawLine struct {
	text  string
	lossy bool
}

// Build streams an rsync "--list-only" listing into an Index. Reading and
// classification run as a two stage pipeline joined by a bounded channel.
// Bytes that are not valid UTF-8 are replaced and the line is kept.
//
// On a read error or context cancellation the partial index is discarded.
// A listing without the marker yields *IngestError.
func Build(ctx context.Context, r io.Reader, opts BuildOptions) (*Index, Stats, error) {
	opts = opts.withDefaults()

	batches := make(chan []rawLine, opts.BufferBatches)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return readLines(gctx, r, opts.BatchLines, batches)
	})

	c := newClassifier(opts)
	g.Go(func() error {
		for batch := range batches {
			for _, l := range batch {
				if err := c.consume(l); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, c.stats, err
	}
	if c.offset < 0 {
		return nil, c.stats, &IngestError{Marker: opts.Marker, Lines: len(c.pending)}
	}
	return c.index, c.stats, nil
}

func readLines(ctx context.Context, r io.Reader, batchLines int, out chan<- []rawLine) error {
	br := bufio.NewReaderSize(r, 1<<20)
	dec := unicode.UTF8.NewDecoder()
	batch := make([]rawLine, 0, batchLines)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]rawLine, 0, batchLines)
		return nil
	}

	for {
		b, err := br.ReadBytes('\n')
		if len(b) > 0 {
			batch = append(batch, decodeLine(dec, b))
			if len(batch) == batchLines {
				if ferr := flush(); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return flush()
		}
		if err != nil {
			return fmt.Errorf("read listing: %w", err)
		}
	}
}

func decodeLine(dec *encoding.Decoder, b []byte) rawLine {
	b = bytes.TrimRight(b, "\r\n")
	if utf8.Valid(b) {
		return rawLine{text: string(b)}
	}
	fixed, err := dec.Bytes(b)
	if err != nil {
		return rawLine{text: strings.ToValidUTF8(string(b), "�"), lossy: true}
	}
	return rawLine{text: string(fixed), lossy: true}
}

// classifier owns the index while it is being built. It only runs on the
// consumer goroutine.
type classifier struct {
	opts    BuildOptions
	index   *Index
	stats   Stats
	offset  int
	pending []rawLine
	scope   []string
}

func newClassifier(opts BuildOptions) *classifier {
	c := &classifier{
		opts:   opts,
		index:  &Index{paths: make(map[string]struct{})},
		offset: -1,
	}
	for _, id := range opts.Scope {
		c.scope = append(c.scope, "/"+strconv.Itoa(id)+"/")
	}
	return c
}

func (c *classifier) consume(l rawLine) error {
	if c.offset < 0 {
		idx := strings.Index(l.text, c.opts.Marker)
		if idx < 0 {
			if len(c.pending) >= c.opts.MaxPendingLines {
				return &IngestError{Marker: c.opts.Marker, Lines: len(c.pending) + 1}
			}
			c.pending = append(c.pending, l)
			return nil
		}
		c.offset = idx
		for _, p := range c.pending {
			c.classify(p)
		}
		c.pending = nil
	}
	c.classify(l)
	return nil
}

func (c *classifier) classify(l rawLine) {
	c.stats.Processed++
	if l.lossy {
		c.stats.Lossy++
	}
	if c.opts.Progress != nil && c.stats.Processed%c.opts.ProgressEvery == 0 {
		c.opts.Progress(c.stats)
	}

	line := l.text
	if strings.HasPrefix(line, "d") {
		c.stats.Directories++
		return
	}
	if len(line) <= c.offset {
		c.stats.Malformed++
		return
	}
	rel := normalize(line[c.offset:])
	if rel == "" {
		c.stats.Malformed++
		return
	}
	if strings.HasPrefix(rel, "old/") || strings.Contains(rel, "/old/") {
		c.stats.Old++
		return
	}
	if len(c.scope) > 0 && !c.inScope(line) {
		c.stats.OutOfScope++
		return
	}

	if _, ok := c.index.paths[rel]; ok {
		c.stats.Duplicates++
		return
	}
	c.index.paths[rel] = struct{}{}
	c.stats.Added++
}

func (c *classifier) inScope(line string) bool {
	for _, token := range c.scope {
		if strings.Contains(line, token) {
			return true
		}
	}
	return false
}

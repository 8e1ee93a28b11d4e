// Package rsync fetches the mirror file listing with the rsync client.
package rsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"pgmirror/shared/application/ports"
)

const defaultBinary = "rsync"

// maxStderr bounds the diagnostic kept from a failed run
const maxStderr = 4096

// Source lists a remote rsync module recursively
type Source struct {
	binary  string
	url     string
	args    []string
	logger  ports.Logger
	metrics ports.Metrics
}

// NewSource builds a listing source for url. An empty binary means "rsync"
// from PATH.
func NewSource(binary, url string, obs ports.Observability) (*Source, error) {
	if url == "" {
		return nil, fmt.Errorf("rsync url is required")
	}
	if binary == "" {
		binary = defaultBinary
	}

	logger, metrics, err := obs.ComponentsScoped("adapters.rsync")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return &Source{
		binary:  binary,
		url:     url,
		args:    []string{"-a", "--list-only"},
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Fetch streams the listing into w. The process is killed when ctx is done.
func (s *Source) Fetch(ctx context.Context, w io.Writer) error {
	start := time.Now()
	args := append(append([]string{}, s.args...), s.url)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	counter := &countingWriter{w: w}
	stderr := &limitedBuffer{max: maxStderr}
	cmd.Stdout = counter
	cmd.Stderr = stderr

	s.logger.Info("Fetching mirror listing", "binary", s.binary, "url", s.url)

	if err := cmd.Run(); err != nil {
		s.metrics.IncrementCounter("rsync.fetch.errors", nil)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rsync %s: %w", s.url, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("rsync %s: %w: %s", s.url, err, msg)
		}
		return fmt.Errorf("rsync %s: %w", s.url, err)
	}

	duration := time.Since(start)
	s.logger.Info("Mirror listing fetched", "bytes", counter.n, "duration_ms", duration.Milliseconds())
	s.metrics.IncrementCounter("rsync.fetch.success", nil)
	s.metrics.RecordHistogram("rsync.fetch.bytes", float64(counter.n), nil)
	s.metrics.RecordHistogram("rsync.fetch.duration_ms", float64(duration.Milliseconds()), nil)
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// limitedBuffer keeps the first max bytes written and drops the rest
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}

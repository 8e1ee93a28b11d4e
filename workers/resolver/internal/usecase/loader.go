package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pgmirror/shared/application/ports"
	"pgmirror/workers/resolver/internal/domain/listing"
	"pgmirror/workers/resolver/internal/domain/mirror"
)

const (
	listingPrefix  = "listing/"
	snapshotPrefix = "index/"
)

// ListingSource streams a fresh raw listing of the mirror.
type ListingSource interface {
	Fetch(ctx context.Context, w io.Writer) error
}

// LoadOptions selects how much of the cached state a load may reuse.
type LoadOptions struct {
	// Force ignores both the snapshot and the cached raw listing.
	Force bool
	// Scope restricts the index to these book ids; empty means every book.
	Scope []int
}

// LoadResult describes where the published index came from.
type LoadResult struct {
	RunID  string        `json:"run_id"`
	Source string        `json:"source"` // "snapshot" or "listing"
	Paths  int           `json:"paths"`
	Stats  listing.Stats `json:"stats"`
	// Unchanged is set when a rebuild produced the index already published.
	Unchanged bool `json:"unchanged"`
}

// LoaderConfig tunes listing ingestion.
type LoaderConfig struct {
	Marker        string
	BufferBatches int
}

// IndexLoader builds or restores the listing index and publishes it to an
// IndexHolder. The raw listing and the snapshot are cached in storage
// under the mirror's name.
type IndexLoader struct {
	storage ports.Storage
	source  ListingSource
	layout  mirror.Layout
	holder  *IndexHolder
	config  LoaderConfig
	logger  ports.Logger
	metrics ports.Metrics
}

func NewIndexLoader(
	storage ports.Storage,
	source ListingSource,
	layout mirror.Layout,
	holder *IndexHolder,
	cfg LoaderConfig,
	obs ports.Observability,
) (*IndexLoader, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.index_loader")
	if err != nil {
		return nil, err
	}

	return &IndexLoader{
		storage: storage,
		source:  source,
		layout:  layout,
		holder:  holder,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (l *IndexLoader) ListingKey() string {
	return listingPrefix + l.layout.ListingFile()
}

func (l *IndexLoader) SnapshotKey() string {
	return snapshotPrefix + l.layout.SnapshotFile()
}

// Load publishes an index for opts.Scope. A stored snapshot is reused when it
// covers the whole mirror or exactly the requested scope; otherwise the
// index is rebuilt from the cached listing, fetching it first when missing.
func (l *IndexLoader) Load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	start := time.Now()
	result := LoadResult{RunID: uuid.NewString()}
	logger := l.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"mirror": l.layout.Name,
		"scope":  listing.ScopeKey(opts.Scope),
	})

	if !opts.Force {
		idx, ok, err := l.readSnapshot(ctx, logger, opts.Scope)
		if err != nil {
			return result, err
		}
		if ok {
			l.holder.Swap(idx)
			result.Source = "snapshot"
			result.Paths = idx.Len()
			l.metrics.IncrementCounter("index.load.success", map[string]string{"source": "snapshot"})
			logger.Info("Index restored from snapshot", "paths", idx.Len(), "duration_ms", time.Since(start).Milliseconds())
			return result, nil
		}
	}

	if err := l.ensureListing(ctx, logger, opts.Force); err != nil {
		l.metrics.IncrementCounter("index.load.errors", map[string]string{"stage": "fetch"})
		return result, err
	}

	idx, stats, err := l.build(ctx, logger, opts.Scope)
	if err != nil {
		l.metrics.IncrementCounter("index.load.errors", map[string]string{"stage": "build"})
		return result, err
	}

	if err := l.writeSnapshot(ctx, idx, opts.Scope); err != nil {
		l.metrics.IncrementCounter("index.load.errors", map[string]string{"stage": "snapshot"})
		return result, err
	}

	prev := l.holder.Load()
	result.Unchanged = prev != nil && prev.Equal(idx)
	l.holder.Swap(idx)
	result.Source = "listing"
	result.Paths = idx.Len()
	result.Stats = stats

	l.metrics.IncrementCounter("index.load.success", map[string]string{"source": "listing"})
	l.metrics.RecordGauge("index.paths", float64(idx.Len()), nil)
	l.metrics.RecordHistogram("index.load.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	logger.Info("Index built from listing",
		"paths", idx.Len(),
		"processed", stats.Processed,
		"directories", stats.Directories,
		"old", stats.Old,
		"out_of_scope", stats.OutOfScope,
		"malformed", stats.Malformed,
		"duplicates", stats.Duplicates,
		"lossy", stats.Lossy,
		"unchanged", result.Unchanged,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// readSnapshot returns ok=false when no usable snapshot is stored. A
// corrupt snapshot is treated as missing.
func (l *IndexLoader) readSnapshot(ctx context.Context, logger ports.Logger, scope []int) (*listing.Index, bool, error) {
	reader, err := l.storage.Get(ctx, "", l.SnapshotKey())
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open snapshot: %w", err)
	}
	defer reader.Close()

	idx, header, err := listing.ReadSnapshot(reader)
	if err != nil {
		if errors.Is(err, listing.ErrBadSnapshot) {
			logger.Error("Ignoring unreadable snapshot", "key", l.SnapshotKey(), "error", err)
			l.metrics.IncrementCounter("index.snapshot.rejected", map[string]string{"reason": "corrupt"})
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	want := listing.ScopeKey(scope)
	if header.Scope != "*" && header.Scope != want {
		logger.Info("Snapshot scope does not match", "snapshot_scope", header.Scope)
		l.metrics.IncrementCounter("index.snapshot.rejected", map[string]string{"reason": "scope"})
		return nil, false, nil
	}
	return idx, true, nil
}

// ensureListing fetches the raw listing into storage unless a cached copy
// can be reused.
func (l *IndexLoader) ensureListing(ctx context.Context, logger ports.Logger, force bool) error {
	if !force {
		ok, err := l.storage.Exists(ctx, "", l.ListingKey())
		if err != nil {
			return fmt.Errorf("check cached listing: %w", err)
		}
		if ok {
			logger.Info("Reusing cached listing", "key", l.ListingKey())
			return nil
		}
	}
	if l.source == nil {
		return errors.New("no cached listing and no listing source configured")
	}

	logger.Info("Fetching mirror listing", "rsync_url", l.layout.RsyncURL)
	start := time.Now()

	err := l.pipe(ctx, l.ListingKey(), "text/plain", func(ctx context.Context, w io.Writer) error {
		return l.source.Fetch(ctx, w)
	})
	if err != nil {
		return fmt.Errorf("fetch listing: %w", err)
	}

	l.metrics.RecordHistogram("index.fetch.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	logger.Info("Mirror listing stored", "key", l.ListingKey(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (l *IndexLoader) build(ctx context.Context, logger ports.Logger, scope []int) (*listing.Index, listing.Stats, error) {
	reader, err := l.storage.Get(ctx, "", l.ListingKey())
	if err != nil {
		return nil, listing.Stats{}, fmt.Errorf("open listing: %w", err)
	}
	defer reader.Close()

	idx, stats, err := listing.Build(ctx, reader, listing.BuildOptions{
		Marker:        l.config.Marker,
		Scope:         scope,
		BufferBatches: l.config.BufferBatches,
		Progress: func(s listing.Stats) {
			logger.Info("Listing progress", "processed", s.Processed, "added", s.Added)
		},
	})
	if err != nil {
		return nil, stats, fmt.Errorf("build index: %w", err)
	}
	return idx, stats, nil
}

func (l *IndexLoader) writeSnapshot(ctx context.Context, idx *listing.Index, scope []int) error {
	err := l.pipe(ctx, l.SnapshotKey(), "application/gzip", func(_ context.Context, w io.Writer) error {
		return listing.WriteSnapshot(w, idx, scope)
	})
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// pipe streams what produce writes into storage under key
func (l *IndexLoader) pipe(ctx context.Context, key, contentType string, produce func(ctx context.Context, w io.Writer) error) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := produce(gctx, pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := l.storage.Put(gctx, "", key, pr, ports.ObjectMetadata{
			ContentType:  contentType,
			UserMetadata: map[string]string{"mirror": l.layout.Name},
		})
		if err != nil {
			pr.CloseWithError(err)
		} else {
			// drain so a producer writing past what Put consumed cannot block
			_, _ = io.Copy(io.Discard, pr)
		}
		return err
	})
	return g.Wait()
}

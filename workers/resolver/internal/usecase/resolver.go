package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"pgmirror/shared/application/ports"
	"pgmirror/workers/resolver/internal/domain/book"
	"pgmirror/workers/resolver/internal/domain/candidate"
	"pgmirror/workers/resolver/internal/domain/exclusion"
	"pgmirror/workers/resolver/internal/domain/mirror"
)

// Resolution lists, per declared format, the mirror URLs confirmed by the
// listing index.
type Resolution struct {
	BookID int                      `json:"book_id"`
	URLs   map[book.Format][]string `json:"urls"`
}

// Resolver confirms generated candidates against the current index.
type Resolver struct {
	layout     mirror.Layout
	rules      map[book.Format]candidate.Rule
	exclusions exclusion.Set
	index      *IndexHolder
	logger     ports.Logger
	metrics    ports.Metrics
}

func NewResolver(
	layout mirror.Layout,
	rules map[book.Format]candidate.Rule,
	exclusions exclusion.Set,
	index *IndexHolder,
	obs ports.Observability,
) (*Resolver, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.resolver")
	if err != nil {
		return nil, err
	}

	return &Resolver{
		layout:     layout,
		rules:      rules,
		exclusions: exclusions,
		index:      index,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Resolve returns the confirmed URLs of every format the book declares.
// Every declared format has a non-nil list, empty when nothing matched.
func (r *Resolver) Resolve(ref book.Ref) Resolution {
	idx := r.index.Load()
	res := Resolution{BookID: ref.ID, URLs: make(map[book.Format][]string)}

	for _, format := range ref.DeclaredFormats() {
		res.URLs[format] = []string{}

		if r.exclusions.Excluded(ref.ID, format) {
			r.metrics.IncrementCounter("resolver.excluded", map[string]string{"format": format.String()})
			continue
		}

		rule, ok := r.rules[format]
		if !ok {
			continue
		}

		candidates, err := rule.Generate(ref.ID, ref.FileNames(format))
		if err != nil {
			var noHTML *candidate.NoHtmlCandidateError
			if errors.As(err, &noHTML) {
				r.logger.Info("No html candidate", "book_id", ref.ID)
				r.metrics.IncrementCounter("resolver.no_html", nil)
				continue
			}
			r.logger.Error("Candidate generation failed", "book_id", ref.ID, "format", format, "error", err)
			continue
		}

		seen := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			if !idx.Contains(c.Path) {
				continue
			}
			url := r.layout.URL(c.Path)
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			res.URLs[format] = append(res.URLs[format], url)
		}
	}

	return res
}

// ResolveAll resolves refs with at most parallelism books in flight.
// Results keep the order of refs.
func (r *Resolver) ResolveAll(ctx context.Context, refs []book.Ref, parallelism int) ([]Resolution, error) {
	start := time.Now()
	if parallelism < 1 {
		parallelism = 1
	}

	out := make([]Resolution, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.Resolve(ref)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urls := 0
	for _, res := range out {
		for _, list := range res.URLs {
			urls += len(list)
		}
	}
	r.metrics.IncrementCounter("resolver.batches", nil)
	r.metrics.RecordHistogram("resolver.batch.books", float64(len(refs)), nil)
	r.metrics.RecordHistogram("resolver.batch.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	r.logger.Info("Books resolved", "books", len(refs), "urls", urls, "parallelism", parallelism)
	return out, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/middleware"
	"pgmirror/shared/infrastructure/runtime"
	"pgmirror/shared/utils"
	"pgmirror/workers/resolver/internal/domain/listing"
	"pgmirror/workers/resolver/internal/domain/mirror"
	"pgmirror/workers/resolver/internal/usecase"
)

func newIndexCommand() *cobra.Command {
	var (
		force bool
		books []int
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Fetch the mirror listing and build the index snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.loadIndex(cmd.Context(), force, books)
			if err != nil {
				return diagnose(err)
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the stored snapshot and listing")
	cmd.Flags().IntSliceVar(&books, "books", nil, "Only index files of these book ids")
	return cmd
}

func newResolveCommand() *cobra.Command {
	var (
		req     usecase.ResolveRequest
		force   bool
		publish bool
		asTree  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve catalog books to mirror URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if cmd.Flags().Changed("concurrency") {
				concurrency, _ := cmd.Flags().GetInt("concurrency")
				app.cfg.Resolver.Concurrency = concurrency
			}

			if _, err := app.loadIndex(ctx, force, req.BookIDs); err != nil {
				return diagnose(err)
			}

			h, err := app.handler(ctx, publish)
			if err != nil {
				return err
			}

			payload, err := json.Marshal(req)
			if err != nil {
				return err
			}
			resp, err := h.Handle(ctx, ports.RuntimeRequest{
				ID:        uuid.NewString(),
				Source:    "cli",
				Timestamp: time.Now().UTC(),
				Payload:   payload,
			})
			if err != nil {
				return err
			}
			if !resp.Success {
				return errors.New(resp.Error)
			}

			var out usecase.ResolveResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return err
			}

			switch {
			case asJSON:
				return printJSON(cmd, out)
			case asTree:
				_, err = fmt.Fprint(cmd.OutOrStdout(), renderTree(app.layout.Name, out.Resolutions))
				return err
			default:
				return printLines(cmd.OutOrStdout(), out.Resolutions)
			}
		},
	}

	cmd.Flags().IntSliceVar(&req.BookIDs, "books", nil, "Book ids to resolve (default: every catalog book)")
	cmd.Flags().StringSliceVar(&req.Languages, "languages", nil, "Only books in these languages")
	cmd.Flags().StringSliceVar(&req.Formats, "formats", nil, "Formats to resolve: epub, pdf, html (default: all)")
	cmd.Flags().Int("concurrency", 0, "Books resolved in parallel (default: RESOLVER_CONCURRENCY)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild the index before resolving")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish resolutions to the fetch queue")
	cmd.Flags().BoolVar(&asTree, "tree", false, "Print resolutions as a tree")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print resolutions as JSON")
	cmd.MarkFlagsMutuallyExclusive("tree", "json")
	return cmd
}

func newServeCommand() *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resolve requests on the configured runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.loadIndex(ctx, false, nil); err != nil {
				return diagnose(err)
			}

			h, err := app.handler(ctx, true)
			if err != nil {
				return err
			}

			chained := middleware.Chain(h,
				middleware.Recovery(app.logger),
				middleware.Logging(app.logger),
				middleware.Metrics(app.metrics),
				middleware.Validation(),
				middleware.Timeout(app.cfg.Runtime.Timeout),
			)

			rt, err := runtime.Create(app.cfg, chained, app.obs)
			if err != nil {
				return err
			}

			if refresh > 0 {
				go app.refreshIndex(ctx, refresh)
			}

			app.logger.Info("Starting runtime", "runtime", app.cfg.Adapters.Runtime)
			app.metrics.IncrementCounter("runtime.starts", nil)
			return rt.Start(ctx)
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 0, "Rebuild the index from a fresh listing at this interval (0 disables)")
	return cmd
}

func newTranslateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <url>...",
		Short: "Translate gutenberg.org URLs into mirror URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := mirror.DefaultLayout()
			layout.BaseURL = utils.GetEnv("MIRROR_URL", mirror.DefaultBaseURL)

			var failed int
			for _, arg := range args {
				u, ok := layout.ArchiveURL(arg)
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: not a translatable url\n", arg)
					failed++
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d urls could not be translated", failed, len(args))
			}
			return nil
		},
	}
}

// refreshIndex rebuilds the index periodically. Requests keep using the
// previous index until the new one is swapped in.
func (a *application) refreshIndex(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := a.loadIndex(ctx, true, nil)
			if err != nil {
				a.logger.Error("Index refresh failed", "error", err)
				continue
			}
			a.logger.Info("Index refreshed", "run_id", result.RunID, "paths", result.Paths)
		}
	}
}

// diagnose keeps the marker in the message when the listing cannot be read
func diagnose(err error) error {
	var ingest *listing.IngestError
	if errors.As(err, &ingest) {
		return fmt.Errorf("listing has no line containing marker %q; check MIRROR_INDEX_MARKER: %w", ingest.Marker, err)
	}
	return err
}

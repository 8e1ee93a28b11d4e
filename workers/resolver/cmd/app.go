package main

import (
	"context"
	"errors"
	"fmt"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
	"pgmirror/shared/infrastructure/database"
	"pgmirror/shared/infrastructure/observability"
	"pgmirror/shared/infrastructure/queue"
	"pgmirror/shared/infrastructure/repository"
	"pgmirror/shared/infrastructure/storage"
	"pgmirror/workers/resolver/internal/adapters/rsync"
	"pgmirror/workers/resolver/internal/domain/candidate"
	"pgmirror/workers/resolver/internal/domain/exclusion"
	"pgmirror/workers/resolver/internal/domain/mirror"
	"pgmirror/workers/resolver/internal/usecase"
)

// application holds the components shared by every command
type application struct {
	cfg     *config.Config
	obs     ports.Observability
	logger  ports.Logger
	metrics ports.Metrics
	layout  mirror.Layout
	holder  *usecase.IndexHolder
	loader  *usecase.IndexLoader

	closers []func() error
}

// newApplication loads the configuration and builds the index loader. The
// catalog and the queue are opened on demand.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	obs, err := observability.CreateObservability(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		return nil, err
	}

	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment)
	metrics.IncrementCounter("application.starts", nil)

	layout, err := layoutFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.CreateStorage(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		metrics.IncrementCounter("init.failures", map[string]string{"component": "storage"})
		return nil, err
	}

	source, err := rsync.NewSource(cfg.Mirror.RsyncBinary, layout.RsyncURL, obs)
	if err != nil {
		return nil, err
	}

	holder := usecase.NewIndexHolder(nil)
	loader, err := usecase.NewIndexLoader(store, source, layout, holder, usecase.LoaderConfig{
		Marker:        cfg.Mirror.IndexMarker,
		BufferBatches: cfg.Index.PipelineBuffer,
	}, obs)
	if err != nil {
		return nil, err
	}

	return &application{
		cfg:     cfg,
		obs:     obs,
		logger:  logger,
		metrics: metrics,
		layout:  layout,
		holder:  holder,
		loader:  loader,
	}, nil
}

func layoutFromConfig(cfg *config.Config) (mirror.Layout, error) {
	layout := mirror.DefaultLayout()
	if cfg.Mirror.URL != "" {
		layout.BaseURL = cfg.Mirror.URL
	}
	if cfg.Mirror.RsyncURL != "" {
		layout.RsyncURL = cfg.Mirror.RsyncURL
	}
	if cfg.Mirror.Name != "" {
		layout.Name = cfg.Mirror.Name
	}
	if err := layout.Validate(); err != nil {
		return mirror.Layout{}, err
	}
	return layout, nil
}

// loadIndex publishes the index for scope, forcing a rebuild when asked on
// the command line or in the configuration.
func (a *application) loadIndex(ctx context.Context, force bool, scope []int) (usecase.LoadResult, error) {
	result, err := a.loader.Load(ctx, usecase.LoadOptions{
		Force: force || a.cfg.Index.ForceRebuild,
		Scope: scope,
	})
	if err != nil {
		a.metrics.IncrementCounter("index.failures", nil)
		return result, fmt.Errorf("failed to load listing index: %w", err)
	}
	return result, nil
}

func (a *application) resolver() (*usecase.Resolver, error) {
	extra, err := exclusion.Parse(a.cfg.Resolver.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver exclusions: %w", err)
	}
	return usecase.NewResolver(
		a.layout,
		candidate.DefaultRules(),
		exclusion.Default().With(extra...),
		a.holder,
		a.obs,
	)
}

// handler builds the resolve handler. Resolutions are published only when
// publish is set and a queue adapter is configured.
func (a *application) handler(ctx context.Context, publish bool) (*usecase.ResolveHandler, error) {
	db, err := database.CreateDatabase(ctx, a.cfg, a.obs)
	if err != nil {
		a.metrics.IncrementCounter("init.failures", map[string]string{"component": "database"})
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	repos, err := repository.NewRepositories(db, a.obs)
	if err != nil {
		return nil, err
	}

	var q ports.Queue
	if publish {
		q, err = queue.CreateQueue(ctx, a.cfg, a.obs)
		if err != nil {
			a.metrics.IncrementCounter("init.failures", map[string]string{"component": "queue"})
			return nil, err
		}
		if q != nil {
			a.closers = append(a.closers, q.Close)
		}
	}

	resolver, err := a.resolver()
	if err != nil {
		return nil, err
	}

	return usecase.NewResolveHandler(repos.Catalog(), resolver, q, usecase.HandlerConfig{
		FetchQueue:  a.cfg.Queue.Fetch,
		Concurrency: a.cfg.Resolver.Concurrency,
	}, a.obs)
}

// Close releases connections in reverse order of opening
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

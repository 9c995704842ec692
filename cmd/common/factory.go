package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/listing-crawler/internal/checkpoint"
	"github.com/jonesrussell/listing-crawler/internal/config"
	"github.com/jonesrussell/listing-crawler/internal/crawl"
	"github.com/jonesrussell/listing-crawler/internal/extract"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/metrics"
	"github.com/jonesrussell/listing-crawler/internal/provider"
	"github.com/jonesrussell/listing-crawler/internal/server"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

// Runtime is the fully wired crawl pipeline.
type Runtime struct {
	Config       *config.Config
	Logger       logger.Interface
	Registry     *prometheus.Registry
	Orchestrator *crawl.Orchestrator
	// Server is nil when no status address is configured.
	Server *server.Server

	closers []func() error
}

// NewRuntime builds the provider, extractor, store, checkpoint store, metrics
// and orchestrator from a validated configuration.
func NewRuntime(ctx context.Context, deps CommandDeps) (*Runtime, error) {
	cfg := deps.Config
	log := deps.Logger

	rt := &Runtime{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(rt.Registry)

	pages, err := provider.NewHTMLProvider(cfg.Provider, log)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	predicate, err := extract.NewPredicate(cfg.Acceptance.Attribute, cfg.Acceptance.Keywords...)
	if err != nil {
		return nil, fmt.Errorf("create acceptance predicate: %w", err)
	}
	extractor := extract.New(pages, predicate, extract.WithLogger(log))

	submitter, err := rt.newSubmitter(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	checkpoints, err := rt.newCheckpointStore(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	orch, err := crawl.New(cfg.CrawlConfig(), pages, extractor, submitter, checkpoints,
		crawl.WithLogger(log),
		crawl.WithMetrics(m),
	)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	rt.Orchestrator = orch

	if cfg.Server.Enabled() {
		rt.Server = server.New(cfg.Server, orch, rt.Registry, log)
	}
	return rt, nil
}

// Run crawls to completion, serving status alongside when enabled. The
// server stops when the crawl ends; a server failure cancels the crawl.
func (r *Runtime) Run(ctx context.Context) (*crawl.Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	var summary *crawl.Summary
	g.Go(func() error {
		defer stopServer()
		s, err := r.Orchestrator.Run(gctx)
		summary = s
		return err
	})

	if r.Server != nil {
		g.Go(func() error {
			return r.Server.Run(serverCtx)
		})
	}

	err := g.Wait()
	return summary, err
}

// Close releases database and Redis connections and flushes the logger.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
	return errors.Join(errs...)
}

func (r *Runtime) newSubmitter(ctx context.Context) (store.Submitter, error) {
	cfg := r.Config.Store
	projection, err := store.NewProjection(cfg.KeyColumn, cfg.DropColumns)
	if err != nil {
		return nil, err
	}

	format := cfg.ResolvedFormat()
	if format == store.FormatPostgres {
		db, err := store.ConnectPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, db.Close)

		pg := store.NewPostgresStore(db, cfg.Table, projection, r.Logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		r.Logger.Info("Using postgres store", "table", cfg.Table)
		return pg, nil
	}

	table, err := store.NewFileTable(cfg.Path, format)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("Using table store", "path", table.Location(), "format", format, "key_column", projection.KeyColumn)
	return store.NewDeduplicator(table, projection, store.WithLogger(r.Logger)), nil
}

func (r *Runtime) newCheckpointStore(ctx context.Context) (checkpoint.Store, error) {
	cfg := r.Config.Checkpoint
	if cfg.Backend != config.CheckpointRedis {
		r.Logger.Info("Using file checkpoint", "path", cfg.Path)
		return checkpoint.NewFileStore(cfg.Path), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	r.closers = append(r.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	cp := checkpoint.NewRedisStore(client, cfg.Name)
	r.Logger.Info("Using redis checkpoint", "key", cp.Key())
	return cp, nil
}

// Package app initializes and holds the long-lived services of the crawl
// coordination service, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/api"
	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
	"github.com/inspirehep/inspire-crawler/internal/harvest"
	"github.com/inspirehep/inspire-crawler/internal/ingest"
	"github.com/inspirehep/inspire-crawler/internal/metrics"
	"github.com/inspirehep/inspire-crawler/internal/results"
	"github.com/inspirehep/inspire-crawler/internal/scheduler"
	"github.com/inspirehep/inspire-crawler/internal/scrapyd"
	storememory "github.com/inspirehep/inspire-crawler/internal/store/memory"
	storepg "github.com/inspirehep/inspire-crawler/internal/store/postgres"
	"github.com/inspirehep/inspire-crawler/internal/workflow"
)

// App holds the shared services built once at startup: the job store, the
// scrapyd client, the workflow engine, and the components wired on top of
// them. Without a database DSN or a Pub/Sub project the in-memory providers
// are used, which keeps local development and tests self-contained.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Jobs      crawler.JobStore
	Submitter crawler.Submitter
	Engine    workflow.Engine
	Scheduler *scheduler.Scheduler
	Pipeline  *ingest.Pipeline
	Bridge    *harvest.Bridge
	Server    *api.Server

	closers []func()
}

// New builds the service graph from configuration. It fails fast when any
// critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	a := &App{Config: cfg, Logger: logger}

	submitter, err := scrapyd.NewClient(cfg.Crawler.HostURL)
	if err != nil {
		return nil, fmt.Errorf("init scrapyd client: %w", err)
	}
	a.Submitter = submitter

	if cfg.DB.DSN != "" {
		store, err := storepg.NewJobStore(ctx, storepg.JobStoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init job store: %w", err)
		}
		a.Jobs = store
		a.closers = append(a.closers, store.Close)
	} else {
		logger.Warn("no database DSN configured, using in-memory job store")
		a.Jobs = storememory.NewJobStore()
	}

	engine, err := a.buildEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Engine = engine

	remote, err := a.buildRemoteReader(ctx)
	if err != nil {
		return nil, err
	}

	a.Scheduler = scheduler.New(a.Submitter, a.Jobs, cfg.Crawler, logger)
	a.Pipeline = ingest.New(
		a.Jobs,
		a.Engine,
		results.NewLocalReader(),
		remote,
		cfg.Crawler.DataType,
		cfg.Dispatch,
		logger,
	)
	a.Bridge = harvest.NewBridge(a.Scheduler, cfg.Harvest, logger)
	a.Server = api.NewServer(a.Jobs, a.Scheduler, a.Pipeline, a.Bridge, logger)

	return a, nil
}

func (a *App) buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (workflow.Engine, error) {
	if cfg.DB.DSN == "" || cfg.PubSub.ProjectID == "" {
		logger.Warn("no database DSN or pubsub project configured, using in-memory workflow engine")
		return workflow.NewMemoryEngine(), nil
	}
	store, err := workflow.NewPostgresStore(ctx, workflow.PostgresStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init workflow object store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	starter, err := workflow.NewPubSubStarter(ctx, cfg.PubSub.ProjectID, logger)
	if err != nil {
		return nil, fmt.Errorf("init workflow starter: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := starter.Close(); err != nil {
			logger.Warn("error closing pubsub starter", zap.Error(err))
		}
	})
	return workflow.NewEngine(store, starter), nil
}

func (a *App) buildRemoteReader(ctx context.Context) (results.Reader, error) {
	if a.Config.PubSub.ProjectID == "" {
		// Without cloud credentials results can only live on shared disk.
		return nil, nil
	}
	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn("error closing gcs client", zap.Error(err))
		}
	})
	reader, err := results.NewGCSReader(client)
	if err != nil {
		return nil, fmt.Errorf("init gcs results reader: %w", err)
	}
	return reader, nil
}

// Close shuts down all held services and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.Logger.Sync()
}

// Package app assembles the data-quality engine from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"trackdq/internal/aggregate"
	"trackdq/internal/alert"
	"trackdq/internal/api"
	"trackdq/internal/capture"
	"trackdq/internal/config"
	"trackdq/internal/discovery"
	"trackdq/internal/evaluator"
	"trackdq/internal/metastore"
	"trackdq/internal/registry"
	"trackdq/internal/runner"
	"trackdq/internal/warehouse"
)

// App holds the wired engine components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Warehouse *warehouse.Warehouse
	MetaDB    *sql.DB
	Store     *metastore.Store
	Registry  *registry.Registry
	Suite     *config.Suite
	Runner    *runner.Runner
	Discovery *discovery.Service
	Alerts    *alert.Evaluator
	API       *api.Server
}

// New opens both data planes, runs migrations, loads and registers the
// check suite, and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	wh, err := warehouse.Open(cfg.WarehousePath)
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemo {
		if err := wh.SeedDemo(ctx); err != nil {
			_ = wh.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	metaDB, err := metastore.OpenSQLite(cfg.MetaDBPath)
	if err != nil {
		_ = wh.Close()
		return nil, err
	}
	if err := metastore.RunMigrations(metaDB); err != nil {
		_ = metaDB.Close()
		_ = wh.Close()
		return nil, err
	}
	store := metastore.NewStore(metaDB)

	suite, err := config.LoadSuite(cfg.SuitePath)
	if err != nil {
		_ = metaDB.Close()
		_ = wh.Close()
		return nil, err
	}
	reg := registry.New()
	if err := suite.RegisterAll(reg); err != nil {
		_ = metaDB.Close()
		_ = wh.Close()
		return nil, fmt.Errorf("register check suite: %w", err)
	}

	eval := evaluator.New(wh, logger)
	if cfg.CheckTimeout > 0 {
		eval.SetTimeout(cfg.CheckTimeout)
	}

	disc := discovery.New(wh, logger)
	alerts := alert.New(suite.Thresholds, logger)

	pipeline := cfg.PipelineName
	if suite.Pipeline != "" {
		pipeline = suite.Pipeline
	}

	run := runner.New(runner.Config{
		Registry:     reg,
		Evaluator:    eval,
		Captures:     capture.NewStore(wh, logger),
		Aggregator:   aggregate.New(store, logger),
		Alerts:       alerts,
		Discovery:    disc,
		Store:        store,
		Logger:       logger,
		Concurrency:  cfg.Concurrency,
		PipelineName: pipeline,
		DashboardURL: cfg.DashboardURL,
		SLAHours:     suite.Thresholds.MaxStalenessHours,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Warehouse: wh,
		MetaDB:    metaDB,
		Store:     store,
		Registry:  reg,
		Suite:     suite,
		Runner:    run,
		Discovery: disc,
		Alerts:    alerts,
		API:       api.NewServer(store, disc, alerts, run, logger),
	}, nil
}

// Close releases both database handles.
func (a *App) Close() {
	if a.MetaDB != nil {
		_ = a.MetaDB.Close()
	}
	if a.Warehouse != nil {
		_ = a.Warehouse.Close()
	}
}

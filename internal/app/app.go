// Package app wires configuration, database, registry and runner together
// for the migrun binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/toolsascode/migrun/internal/backendfactory"
	"github.com/toolsascode/migrun/internal/backends"
	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/internal/executor"
	"github.com/toolsascode/migrun/internal/loader"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/metrics"
	"github.com/toolsascode/migrun/internal/registry"
	"github.com/toolsascode/migrun/internal/runner"
	"github.com/toolsascode/migrun/migrations"
)

// App holds the components shared by the CLI, server and worker
type App struct {
	Config   *config.Config
	Backend  backends.Backend
	DB       *sql.DB
	Registry *registry.Registry
	Runner   *runner.Runner
	Executor *executor.Executor
	Metrics  *metrics.Collector
}

// New applies the logging settings, opens the database, registers Go
// migrations from factories followed by the SQL files in the migrations
// directory, and builds the runner
func New(ctx context.Context, cfg *config.Config, factories ...migrations.Factory) (*App, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	if err := logger.SetFormat(cfg.Log.Format); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := backendfactory.New(cfg.Database.Backend)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if err := migrations.Bootstrap(reg, factories...); err != nil {
		return nil, fmt.Errorf("failed to register migrations: %w", err)
	}
	count, err := loader.NewDir(cfg.Migrations.Dir, logger.L()).LoadInto(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations from %s: %w", cfg.Migrations.Dir, err)
	}
	logger.Infof("Loaded %d migration(s) from %s", count, cfg.Migrations.Dir)

	db, err := backend.Open(ctx, cfg.Connection())
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	r, err := runner.New(ctx, db, reg,
		runner.WithBackend(backend),
		runner.WithLogger(logger.L()),
		runner.WithObserver(collector),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Backend:  backend,
		DB:       db,
		Registry: reg,
		Runner:   r,
		Executor: executor.NewExecutor(r),
		Metrics:  collector,
	}, nil
}

// Close releases the database connection
func (a *App) Close() error {
	return a.DB.Close()
}

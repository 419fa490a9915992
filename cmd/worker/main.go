package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toolsascode/migrun/internal/app"
	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queuefactory"
	"github.com/toolsascode/migrun/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("MIGRUN_CONFIG"))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.Queue.Enabled {
		logger.Fatalf("Queue is not enabled. Set MIGRUN_QUEUE_ENABLED=true to use the worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	q, err := queuefactory.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to create queue: %v", err)
	}

	w := worker.NewWorker(a.Executor, q)
	w.SetObserver(a.Metrics)

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("Serving worker metrics on port %s", cfg.Server.HTTPPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()

	logger.Infof("Migration worker started (%s). Press Ctrl+C to stop.", cfg.Queue.Type)

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Worker error: %v", err)
	}

	logger.Info("Shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Metrics server forced to shutdown: %v", err)
	}

	if err := w.Stop(); err != nil {
		logger.Errorf("Error stopping worker: %v", err)
	}

	logger.Info("Worker stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "github.com/toolsascode/migrun/internal/api/grpc"
	httpapi "github.com/toolsascode/migrun/internal/api/http"
	"github.com/toolsascode/migrun/internal/app"
	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queuefactory"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("MIGRUN_CONFIG"))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Initializing migrun server...")

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Initialize queue if enabled
	if cfg.Queue.Enabled {
		q, err := queuefactory.NewQueue(cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to create queue: %v", err)
		}
		defer func() { _ = q.Close() }()

		a.Executor.SetQueue(q)
		logger.Info("Queue enabled - migrations will be queued for async execution")
	}

	// Initialize HTTP server
	router := gin.New()

	// Skip logging for health check endpoints
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.Path == "/health" || param.Path == "/api/v1/health" || param.Path == "/metrics" {
			return ""
		}
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
		)
	}))
	router.Use(gin.Recovery())

	httpapi.NewHandler(a.Executor, cfg.Server.APIToken, a.Metrics.Handler()).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting HTTP server on port %s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Start gRPC health server
	grpcServer := grpc.NewServer()
	watcher := grpcapi.NewHealthWatcher(a.Executor, 15*time.Second)
	watcher.Register(grpcServer)
	go watcher.Run(ctx)

	grpcListener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		logger.Fatalf("Failed to listen on gRPC port %s: %v", cfg.Server.GRPCPort, err)
	}

	go func() {
		logger.Infof("Starting gRPC server on port %s", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Fatalf("Failed to start gRPC server: %v", err)
		}
	}()

	logger.Info("migrun server started successfully")
	logger.Infof("HTTP API available at http://localhost:%s", cfg.Server.HTTPPort)
	logger.Infof("gRPC health available at localhost:%s", cfg.Server.GRPCPort)

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}

	grpcServer.GracefulStop()

	logger.Info("Servers exited")
}

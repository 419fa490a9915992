package grpc

import (
	"context"
	"time"

	"github.com/toolsascode/migrun/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported alongside the overall server status
const ServiceName = "migrun.v1.Migrations"

// Checker reports whether migrations can currently be run
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// HealthWatcher keeps the standard gRPC health service in sync with a
// Checker by polling it
type HealthWatcher struct {
	server   *health.Server
	checker  Checker
	interval time.Duration
	timeout  time.Duration
}

// NewHealthWatcher creates a watcher polling checker every interval.
// Services start as NOT_SERVING until the first check passes.
func NewHealthWatcher(checker Checker, interval time.Duration) *HealthWatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	w := &HealthWatcher{
		server:   health.NewServer(),
		checker:  checker,
		interval: interval,
		timeout:  interval / 2,
	}
	w.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return w
}

// Register adds the health service to s
func (w *HealthWatcher) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, w.server)
}

// Server returns the underlying health server
func (w *HealthWatcher) Server() *health.Server {
	return w.server
}

// Check runs the checker once and publishes the result
func (w *HealthWatcher) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := w.checker.HealthCheck(ctx); err != nil {
		logger.Warnf("Health check failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.set(status)
	return status
}

// Run polls until ctx is done, then marks every service NOT_SERVING
func (w *HealthWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.server.Shutdown()
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

func (w *HealthWatcher) set(status healthpb.HealthCheckResponse_ServingStatus) {
	w.server.SetServingStatus("", status)
	w.server.SetServingStatus(ServiceName, status)
}

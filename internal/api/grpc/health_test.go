package grpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockChecker struct {
	mu  sync.Mutex
	err error
}

func (m *mockChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockChecker) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func servingStatus(t *testing.T, w *HealthWatcher, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := w.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) error = %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthWatcher_Check(t *testing.T) {
	checker := &mockChecker{}
	w := NewHealthWatcher(checker, time.Minute)

	if got := servingStatus(t, w, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %v, want NOT_SERVING", got)
	}

	if got := w.Check(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Check() = %v, want SERVING", got)
	}
	for _, service := range []string{"", ServiceName} {
		if got := servingStatus(t, w, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("status(%q) = %v, want SERVING", service, got)
		}
	}

	checker.setErr(errors.New("database unreachable"))
	if got := w.Check(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Check() = %v, want NOT_SERVING", got)
	}
	if got := servingStatus(t, w, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestHealthWatcher_Run(t *testing.T) {
	w := NewHealthWatcher(&mockChecker{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for servingStatus(t, w, "") != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("watcher never reported SERVING")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := servingStatus(t, w, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", got)
	}
}

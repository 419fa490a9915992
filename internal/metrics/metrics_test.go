package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/toolsascode/migrun/internal/runner"
)

func TestCollector_ObserveMigration(t *testing.T) {
	c := NewCollector()

	c.ObserveMigration(runner.OperationUp, 1, 10*time.Millisecond, nil)
	c.ObserveMigration(runner.OperationUp, 2, 20*time.Millisecond, nil)
	c.ObserveMigration(runner.OperationUp, 3, time.Millisecond, errors.New("boom"))
	c.ObserveMigration(runner.OperationDown, 2, time.Millisecond, nil)

	tests := []struct {
		operation, outcome string
		want               float64
	}{
		{"up", "success", 2},
		{"up", "failure", 1},
		{"down", "success", 1},
		{"down", "failure", 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(c.MigrationsTotal.WithLabelValues(tt.operation, tt.outcome)); got != tt.want {
			t.Errorf("migrations_total{%s,%s} = %v, want %v", tt.operation, tt.outcome, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(c.LastVersion.WithLabelValues("up")); got != 2 {
		t.Errorf("last_migration_version{up} = %v, want 2 (failures do not move it)", got)
	}
	if got := testutil.ToFloat64(c.LastVersion.WithLabelValues("down")); got != 2 {
		t.Errorf("last_migration_version{down} = %v, want 2", got)
	}
}

func TestCollector_ObserveJob(t *testing.T) {
	c := NewCollector()
	c.ObserveJob("rollback", nil)
	c.ObserveJob("rollback", errors.New("x"))

	if got := testutil.ToFloat64(c.JobsTotal.WithLabelValues("rollback", "failure")); got != 1 {
		t.Errorf("jobs_total{rollback,failure} = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveMigration(runner.OperationUp, 20240101000000, time.Second, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"migrun_migrations_total", "migrun_migration_duration_seconds", "migrun_last_migration_version"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toolsascode/migrun/internal/runner"
)

const namespace = "migrun"

// Collector records migration outcomes in its own Prometheus registry.
// It satisfies runner.Observer.
type Collector struct {
	registry *prometheus.Registry

	MigrationsTotal   *prometheus.CounterVec
	MigrationDuration *prometheus.HistogramVec
	LastVersion       *prometheus.GaugeVec
	JobsTotal         *prometheus.CounterVec
}

// NewCollector creates a collector with its metrics registered
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		MigrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Total number of migration steps by direction and outcome",
		}, []string{"operation", "outcome"}),
		MigrationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_duration_seconds",
			Help:      "Duration of migration steps in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		LastVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_migration_version",
			Help:      "Version of the last migration successfully run in each direction",
		}, []string{"operation"}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of queued migration jobs processed by outcome",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(c.MigrationsTotal, c.MigrationDuration, c.LastVersion, c.JobsTotal)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return c
}

// ObserveMigration implements runner.Observer
func (c *Collector) ObserveMigration(op runner.Operation, version int64, duration time.Duration, err error) {
	operation := string(op)
	c.MigrationsTotal.WithLabelValues(operation, outcome(err)).Inc()
	c.MigrationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil {
		c.LastVersion.WithLabelValues(operation).Set(float64(version))
	}
}

// ObserveJob counts a processed queue job
func (c *Collector) ObserveJob(operation string, err error) {
	c.JobsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

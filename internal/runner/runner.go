package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/toolsascode/migrun/internal/backends"
	"github.com/toolsascode/migrun/internal/registry"
	"github.com/toolsascode/migrun/internal/state"
)

// Observer is notified after every migration step, successful or not
type Observer interface {
	ObserveMigration(op Operation, version int64, duration time.Duration, err error)
}

// Runner applies pending migrations and reverts the latest applied one
type Runner struct {
	db       backends.DB
	registry *registry.Registry
	tracker  *state.Tracker
	logger   logrus.FieldLogger
	observer Observer

	dialect          backends.Dialect
	transactionalDDL bool
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger used for progress and failures
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithDialect selects the placeholder style of bookkeeping statements.
// The default is PostgreSQL.
func WithDialect(dialect backends.Dialect) Option {
	return func(r *Runner) {
		r.dialect = dialect
	}
}

// WithBackend takes the dialect and DDL behaviour from backend
func WithBackend(backend backends.Backend) Option {
	return func(r *Runner) {
		r.dialect = backend.Dialect()
		r.transactionalDDL = backend.TransactionalDDL()
	}
}

// WithObserver registers an observer for migration outcomes
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// Result lists what RunPending did. On failure it still holds the
// migrations committed before the failing one.
type Result struct {
	Applied []int64
	Skipped []int64
}

// RollbackResult describes the migration reverted by Rollback. RolledBack
// is false when there was nothing to revert.
type RollbackResult struct {
	Version    int64
	Name       string
	RolledBack bool
}

// New creates a runner and ensures the bookkeeping table exists
func New(ctx context.Context, db backends.DB, reg *registry.Registry, opts ...Option) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if reg == nil {
		reg = registry.New()
	}

	r := &Runner{
		db:               db,
		registry:         reg,
		logger:           logrus.StandardLogger(),
		dialect:          backends.DialectPostgres,
		transactionalDDL: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tracker = state.NewTracker(r.dialect)

	if err := r.tracker.EnsureTable(ctx, r.db); err != nil {
		return nil, err
	}

	if !r.transactionalDDL {
		r.logger.WithField("dialect", r.dialect).
			Warn("Backend commits DDL implicitly; a failed migration may leave partial schema changes behind")
	}

	return r, nil
}

// Registry returns the registry the runner resolves rollbacks against
func (r *Runner) Registry() *registry.Registry {
	return r.registry
}

// RunPending applies every migration in migrations that has no bookkeeping
// record, in ascending version order. Each migration runs in its own
// transaction together with its record insert. The first failure stops the
// run; migrations committed before it stay applied.
func (r *Runner) RunPending(ctx context.Context, migrations []registry.Migration) (*Result, error) {
	sorted := make([]registry.Migration, len(migrations))
	copy(sorted, migrations)
	registry.SortByVersion(sorted)

	result := &Result{}
	for _, m := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		applied, err := r.tracker.IsApplied(ctx, r.db, m.Version())
		if err != nil {
			return result, &MigrationError{Version: m.Version(), Name: m.Name(), Operation: OperationUp, Err: err}
		}
		if applied {
			r.logger.WithField("version", m.Version()).Debug("Skipping applied migration")
			result.Skipped = append(result.Skipped, m.Version())
			continue
		}

		if err := r.apply(ctx, m); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, m.Version())
	}

	return result, nil
}

// RunRegistered runs every registered migration that is still pending
func (r *Runner) RunRegistered(ctx context.Context) (*Result, error) {
	return r.RunPending(ctx, r.registry.ListSorted())
}

func (r *Runner) apply(ctx context.Context, m registry.Migration) (err error) {
	logger := r.logger.WithFields(logrus.Fields{
		"version":   m.Version(),
		"name":      m.Name(),
		"operation": OperationUp,
	})
	start := time.Now()
	defer func() {
		r.observe(OperationUp, m.Version(), time.Since(start), err)
	}()

	logger.Info("Applying migration")
	err = r.inTx(ctx, logger, func(tx backends.Handle) error {
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
		return r.tracker.Record(ctx, tx, m.Version())
	})
	if err != nil {
		logger.WithError(err).Error("Migration failed")
		return &MigrationError{Version: m.Version(), Name: m.Name(), Operation: OperationUp, Err: err}
	}

	logger.WithField("duration", time.Since(start).String()).Info("Applied migration")
	return nil
}

// Rollback reverts the single most recently applied migration. It is a
// no-op when nothing has been applied and fails with
// ErrUnresolvableMigration when the latest version is not registered.
func (r *Runner) Rollback(ctx context.Context) (*RollbackResult, error) {
	version, ok, err := r.tracker.Latest(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Info("No applied migrations to roll back")
		return &RollbackResult{}, nil
	}

	m, found := r.registry.Lookup(version)
	if !found {
		err := &MigrationError{Version: version, Operation: OperationDown, Err: ErrUnresolvableMigration}
		r.logger.WithField("version", version).WithError(err).Error("Cannot roll back")
		r.observe(OperationDown, version, 0, err)
		return nil, err
	}

	if err := r.revert(ctx, m); err != nil {
		return nil, err
	}
	return &RollbackResult{Version: version, Name: m.Name(), RolledBack: true}, nil
}

func (r *Runner) revert(ctx context.Context, m registry.Migration) (err error) {
	logger := r.logger.WithFields(logrus.Fields{
		"version":   m.Version(),
		"name":      m.Name(),
		"operation": OperationDown,
	})
	start := time.Now()
	defer func() {
		r.observe(OperationDown, m.Version(), time.Since(start), err)
	}()

	logger.Info("Rolling back migration")
	err = r.inTx(ctx, logger, func(tx backends.Handle) error {
		if err := m.Down(ctx, tx); err != nil {
			return err
		}
		return r.tracker.Delete(ctx, tx, m.Version())
	})
	if err != nil {
		logger.WithError(err).Error("Rollback failed")
		return &MigrationError{Version: m.Version(), Name: m.Name(), Operation: OperationDown, Err: err}
	}

	logger.WithField("duration", time.Since(start).String()).Info("Rolled back migration")
	return nil
}

// HealthCheck verifies the database is reachable and the bookkeeping table
// can be read
func (r *Runner) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if _, _, err := r.tracker.Latest(ctx, r.db); err != nil {
		return err
	}
	return nil
}

func (r *Runner) observe(op Operation, version int64, d time.Duration, err error) {
	if r.observer != nil {
		r.observer.ObserveMigration(op, version, d, err)
	}
}

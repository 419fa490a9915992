package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/toolsascode/migrun/internal/queue"
	"github.com/toolsascode/migrun/internal/registry"
	"github.com/toolsascode/migrun/internal/runner"
)

// Executor runs migration operations against a runner, or queues them when
// a producer is configured
type Executor struct {
	runner *runner.Runner
	queue  queue.Producer // Optional producer for async execution
	mu     sync.Mutex
}

// NewExecutor creates a new migration executor
func NewExecutor(r *runner.Runner) *Executor {
	return &Executor{runner: r}
}

// SetQueue sets the producer for async execution
func (e *Executor) SetQueue(p queue.Producer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = p
}

// Runner returns the underlying runner
func (e *Executor) Runner() *runner.Runner {
	return e.runner
}

// ExecuteResult represents the result of a migration operation
type ExecuteResult struct {
	Operation      queue.Operation
	Success        bool
	Applied        []int64
	Skipped        []int64
	Pending        []int64
	RolledBack     int64
	RolledBackName string
	Errors         []string
	Queued         bool   // Whether the job was queued instead of executed
	JobID          string // Job ID if queued
}

// Up applies pending migrations, or lists them when dryRun is set.
// If a queue is configured the job is published instead.
func (e *Executor) Up(ctx context.Context, dryRun bool) (*ExecuteResult, error) {
	return e.execute(ctx, queue.OperationUp, dryRun)
}

// Rollback reverts the latest applied migration, or queues the request
func (e *Executor) Rollback(ctx context.Context) (*ExecuteResult, error) {
	return e.execute(ctx, queue.OperationRollback, false)
}

func (e *Executor) execute(ctx context.Context, op queue.Operation, dryRun bool) (*ExecuteResult, error) {
	e.mu.Lock()
	p := e.queue
	e.mu.Unlock()

	if p != nil {
		return e.queueJob(ctx, p, op, dryRun)
	}
	return e.ExecuteSync(ctx, op, dryRun)
}

func (e *Executor) queueJob(ctx context.Context, p queue.Producer, op queue.Operation, dryRun bool) (*ExecuteResult, error) {
	job := queue.NewJob(op, dryRun)
	if err := p.PublishJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue migration job: %w", err)
	}

	return &ExecuteResult{
		Operation: op,
		Success:   true,
		Applied:   []int64{},
		Skipped:   []int64{},
		Errors:    []string{},
		Queued:    true,
		JobID:     job.ID,
	}, nil
}

// ExecuteSync runs op directly against the runner, bypassing the queue.
// On failure the result still carries the partial progress.
func (e *Executor) ExecuteSync(ctx context.Context, op queue.Operation, dryRun bool) (*ExecuteResult, error) {
	result := &ExecuteResult{
		Operation: op,
		Applied:   []int64{},
		Skipped:   []int64{},
		Errors:    []string{},
	}

	switch op {
	case queue.OperationUp:
		if dryRun {
			return e.dryRun(ctx, result)
		}
		res, err := e.runner.RunRegistered(ctx)
		if res != nil {
			result.Applied = append(result.Applied, res.Applied...)
			result.Skipped = append(result.Skipped, res.Skipped...)
		}
		return finish(result, err)

	case queue.OperationRollback:
		if dryRun {
			return nil, fmt.Errorf("dry run is not supported for %s", op)
		}
		res, err := e.runner.Rollback(ctx)
		if res != nil && res.RolledBack {
			result.RolledBack = res.Version
			result.RolledBackName = res.Name
		}
		return finish(result, err)

	default:
		return nil, fmt.Errorf("unknown job operation %q", op)
	}
}

func (e *Executor) dryRun(ctx context.Context, result *ExecuteResult) (*ExecuteResult, error) {
	pending, err := e.runner.Pending(ctx, e.runner.Registry().ListSorted())
	if err != nil {
		return finish(result, err)
	}
	result.Pending = versions(pending)
	return finish(result, nil)
}

// Status reports applied and pending migrations
func (e *Executor) Status(ctx context.Context) (*runner.Status, error) {
	return e.runner.Status(ctx)
}

// HealthCheck performs health checks on the executor
func (e *Executor) HealthCheck(ctx context.Context) error {
	if err := e.runner.HealthCheck(ctx); err != nil {
		return fmt.Errorf("runner health check failed: %w", err)
	}
	return nil
}

func finish(result *ExecuteResult, err error) (*ExecuteResult, error) {
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	result.Success = true
	return result, nil
}

func versions(migrations []registry.Migration) []int64 {
	out := make([]int64, len(migrations))
	for i, m := range migrations {
		out[i] = m.Version()
	}
	return out
}

package worker

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/toolsascode/migrun/internal/executor"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queue"
)

// JobObserver is notified once per processed job
type JobObserver interface {
	ObserveJob(operation string, err error)
}

// Worker processes migration jobs from the queue, one at a time
type Worker struct {
	executor *executor.Executor
	queue    queue.Consumer
	observer JobObserver
}

// NewWorker creates a new migration worker
func NewWorker(exec *executor.Executor, q queue.Consumer) *Worker {
	return &Worker{
		executor: exec,
		queue:    q,
	}
}

// SetObserver sets the observer notified after each job
func (w *Worker) SetObserver(o JobObserver) {
	w.observer = o
}

// Start consumes jobs until ctx is canceled or the queue fails
func (w *Worker) Start(ctx context.Context) error {
	logger.Info("Starting migration worker...")
	return w.queue.Consume(ctx, w.processJob)
}

// processJob processes a single migration job
func (w *Worker) processJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	logger.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"operation": job.Operation,
		"dry_run":   job.DryRun,
	}).Info("Processing migration job")

	if err := job.Validate(); err != nil {
		w.observe(job, err)
		return failed(job, err), err
	}

	result, err := w.executor.ExecuteSync(ctx, job.Operation, job.DryRun)
	w.observe(job, err)
	if result == nil {
		return failed(job, err), err
	}

	return &queue.JobResult{
		JobID:      job.ID,
		Operation:  job.Operation,
		Success:    result.Success,
		Applied:    result.Applied,
		Skipped:    result.Skipped,
		Pending:    result.Pending,
		RolledBack: result.RolledBack,
		Errors:     result.Errors,
	}, err
}

func (w *Worker) observe(job *queue.Job, err error) {
	if w.observer != nil {
		w.observer.ObserveJob(string(job.Operation), err)
	}
}

func failed(job *queue.Job, err error) *queue.JobResult {
	return &queue.JobResult{
		JobID:     job.ID,
		Operation: job.Operation,
		Success:   false,
		Applied:   []int64{},
		Skipped:   []int64{},
		Errors:    []string{err.Error()},
	}
}

// Stop stops the worker
func (w *Worker) Stop() error {
	logger.Info("Stopping migration worker...")
	return w.queue.Close()
}

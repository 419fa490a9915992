package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation is what a job asks the worker to do
type Operation string

const (
	OperationUp       Operation = "up"
	OperationRollback Operation = "rollback"
)

// Job represents a migration job to be queued
type Job struct {
	ID          string            `json:"id"`
	Operation   Operation         `json:"operation"`
	DryRun      bool              `json:"dry_run,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewJob creates a job with a fresh ID
func NewJob(op Operation, dryRun bool) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Operation:   op,
		DryRun:      dryRun,
		RequestedAt: time.Now().UTC(),
	}
}

// Validate checks that the job names a known operation
func (j *Job) Validate() error {
	switch j.Operation {
	case OperationUp, OperationRollback:
		return nil
	default:
		return fmt.Errorf("unknown job operation %q", j.Operation)
	}
}

// EnsureID assigns a new ID to a job that has none
func (j *Job) EnsureID() {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
}

// JobResult represents the result of a migration job
type JobResult struct {
	JobID      string    `json:"job_id"`
	Operation  Operation `json:"operation"`
	Success    bool      `json:"success"`
	Applied    []int64   `json:"applied"`
	Skipped    []int64   `json:"skipped"`
	Pending    []int64   `json:"pending,omitempty"`
	RolledBack int64     `json:"rolled_back,omitempty"`
	Errors     []string  `json:"errors"`
}

// Producer publishes migration jobs to the queue
type Producer interface {
	// PublishJob publishes a migration job to the queue
	PublishJob(ctx context.Context, job *Job) error

	// Close closes the producer connection
	Close() error
}

// Consumer consumes migration jobs from the queue
type Consumer interface {
	// Consume starts consuming jobs from the queue
	// The handler function is called for each job
	Consume(ctx context.Context, handler JobHandler) error

	// Close closes the consumer connection
	Close() error
}

// JobHandler processes a migration job
type JobHandler func(ctx context.Context, job *Job) (*JobResult, error)

// Queue provides both producer and consumer capabilities
type Queue interface {
	Producer
	Consumer
}

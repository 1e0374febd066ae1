package driven

import (
	"context"

	"github.com/lunavision/facesink/internal/core/domain"
)

// TaskQueue is the background work queue feeding the ingest workers.
// The Redis adapter is preferred; the Postgres adapter serves
// deployments without Redis.
type TaskQueue interface {
	// Enqueue submits a task. Tasks scheduled in the future are held
	// until due.
	Enqueue(ctx context.Context, task *domain.Task) error

	// Dequeue claims the next available task, marking it processing so
	// no other worker receives it. A nil, nil return means no task.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout is Dequeue bounded to timeout seconds; nil, nil
	// when the wait expires empty.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack settles a task as completed.
	Ack(ctx context.Context, taskID string) error

	// Nack reports a failed attempt. The task is re-scheduled with
	// backoff until its attempts run out, then marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask looks up a task by ID for status inspection.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Stats summarizes queue depth per status.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error

	// Close releases queue-owned resources.
	Close() error
}

// QueueStats is a per-status census of the queue.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
}

// SchedulerStore persists recurring schedules. Schedules are
// configuration, not transient queue items.
type SchedulerStore interface {
	GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error)
	ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)
	SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error
	DeleteScheduledTask(ctx context.Context, id string) error

	// GetDueScheduledTasks returns enabled schedules whose next run has
	// passed.
	GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateLastRun records a trigger outcome and advances the next run.
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}

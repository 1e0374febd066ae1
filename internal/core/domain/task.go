package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the kind of background task.
type TaskType string

const (
	// TaskTypeIngestArtifact runs the ingest pipeline for one artifact
	TaskTypeIngestArtifact TaskType = "ingest_artifact"
	// TaskTypeSweepIncoming reconciles every artifact in the incoming folder
	TaskTypeSweepIncoming TaskType = "sweep_incoming"
)

// TaskStatus is the queue-side lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of background work. The payload holds
// {"artifact": "<filename>"} for ingest tasks and is empty for sweeps.
type Task struct {
	ID          string            `json:"id"`
	Type        TaskType          `json:"type"`
	Payload     map[string]string `json:"payload"`
	Status      TaskStatus        `json:"status"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	// Error holds the most recent failure message
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// ScheduledFor delays processing; the queue holds the task until then
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask builds a pending task due immediately.
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestTask builds a task that ingests a single named artifact.
func NewIngestTask(artifactName string) *Task {
	return NewTask(TaskTypeIngestArtifact, map[string]string{
		"artifact": artifactName,
	})
}

// NewSweepTask builds a task that sweeps the whole incoming folder.
func NewSweepTask() *Task {
	return NewTask(TaskTypeSweepIncoming, nil)
}

// ArtifactName returns the artifact filename an ingest task targets,
// or "" when the payload has none.
func (t *Task) ArtifactName() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["artifact"]
}

// CanRetry reports whether the task has attempts left.
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady reports whether the task is pending and due.
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing transitions to processing and counts the attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted transitions to completed and clears any stale error.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed transitions to failed, recording the final error.
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry re-queues the task with exponential backoff (1s, 2s, 4s, ...),
// capped at five minutes.
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// ScheduledTask is a recurring trigger that emits a Task each interval.
type ScheduledTask struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     TaskType      `json:"type"`
	Interval time.Duration `json:"interval"`
	Enabled  bool          `json:"enabled"`
	LastRun  *time.Time    `json:"last_run,omitempty"`
	NextRun  time.Time     `json:"next_run"`
	// LastError holds the most recent trigger failure
	LastError string `json:"last_error,omitempty"`
}

// NewScheduledTask builds an enabled schedule whose first run is one
// interval from now.
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue reports whether the schedule should trigger now.
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun records a trigger and advances the next run time.
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedulerConfig returns the schedules every deployment carries:
// a periodic sweep of the incoming folder.
func DefaultSchedulerConfig(sweepInterval time.Duration) []*ScheduledTask {
	return []*ScheduledTask{
		NewScheduledTask(
			"incoming-sweep",
			"Incoming Folder Sweep",
			TaskTypeSweepIncoming,
			sweepInterval,
		),
	}
}

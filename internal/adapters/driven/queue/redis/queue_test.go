package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lunavision/facesink/internal/core/domain"
)

func setupTestQueue(t *testing.T) (*Queue, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return q, func() {
		client.Close()
		mr.Close()
	}
}

func TestNewQueue_NilClient(t *testing.T) {
	_, err := NewQueue(nil, "test-worker")
	if err == nil {
		t.Error("expected error for nil client")
	}
}

func TestNewQueue_Idempotent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// Creating the consumer group twice must not fail
	if _, err := NewQueue(client, "worker-1"); err != nil {
		t.Fatalf("first queue: %v", err)
	}
	if _, err := NewQueue(client, "worker-2"); err != nil {
		t.Fatalf("second queue: %v", err)
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	task := domain.NewIngestTask("doc.json")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
	if got.Type != domain.TaskTypeIngestArtifact {
		t.Errorf("expected ingest task, got %s", got.Type)
	}
	if got.ArtifactName() != "doc.json" {
		t.Errorf("expected artifact doc.json, got %s", got.ArtifactName())
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected processing, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
}

func TestQueue_Enqueue_Nil(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := q.Enqueue(context.Background(), nil); err == nil {
		t.Error("expected error for nil task")
	}
}

func TestQueue_Ack(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	task := domain.NewSweepTask()
	q.Enqueue(ctx, task)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("failed to dequeue: %v", err)
	}

	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("failed to ack: %v", err)
	}

	stored, err := q.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
}

func TestQueue_Nack_Retries(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	task := domain.NewIngestTask("doc.json")
	q.Enqueue(ctx, task)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("failed to dequeue: %v", err)
	}

	if err := q.Nack(ctx, got.ID, "table offline"); err != nil {
		t.Fatalf("failed to nack: %v", err)
	}

	stored, err := q.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if stored.Status != domain.TaskStatusPending {
		t.Errorf("expected pending for retry, got %s", stored.Status)
	}
	if stored.Error != "table offline" {
		t.Errorf("expected error recorded, got %q", stored.Error)
	}
	// Backed off into the scheduled set, not immediately dequeuable
	if !stored.ScheduledFor.After(time.Now()) {
		t.Error("expected retry scheduled in the future")
	}
}

func TestQueue_Nack_ExhaustedFails(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	task := domain.NewIngestTask("doc.json")
	task.MaxAttempts = 1
	q.Enqueue(ctx, task)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("failed to dequeue: %v", err)
	}

	if err := q.Nack(ctx, got.ID, "table offline"); err != nil {
		t.Fatalf("failed to nack: %v", err)
	}

	stored, _ := q.GetTask(ctx, got.ID)
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed after exhausted retries, got %s", stored.Status)
	}
}

func TestQueue_Nack_UnknownTask(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := q.Nack(context.Background(), "missing", "whatever"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestQueue_GetTask_Unknown(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	task, err := q.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Error("expected nil for unknown task")
	}
}

func TestQueue_DelayedTaskPromoted(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	task := domain.NewIngestTask("doc.json")
	task.ScheduledFor = time.Now().Add(100 * time.Millisecond)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	// Once the schedule passes, the next dequeue promotes and delivers it
	time.Sleep(150 * time.Millisecond)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected the promoted task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
}

func TestQueue_Stats(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	q.Enqueue(ctx, domain.NewIngestTask("a.json"))
	q.Enqueue(ctx, domain.NewIngestTask("b.json"))
	q.Enqueue(ctx, domain.NewIngestTask("c.json"))

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	q.Ack(ctx, got.ID)

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.CompletedCount != 1 {
		t.Errorf("expected 1 completed, got %d", stats.CompletedCount)
	}
}

func TestQueue_Ping(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}

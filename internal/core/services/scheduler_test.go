package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven/mocks"
)

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:     mocks.NewMockSchedulerStore(),
		TaskQueue: mocks.NewMockTaskQueue(),
	})

	if s.interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %v", s.interval)
	}
	if s.lockTTL != 60*time.Second {
		t.Errorf("expected default lock TTL 60s, got %v", s.lockTTL)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
}

func TestNewScheduler_ProvidedLockIsRequired(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:     mocks.NewMockSchedulerStore(),
		TaskQueue: mocks.NewMockTaskQueue(),
		Lock:      mocks.NewMockDistributedLock(),
	})

	if !s.lockRequired {
		t.Error("expected a provided lock to default to required")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:        mocks.NewMockSchedulerStore(),
		TaskQueue:    mocks.NewMockTaskQueue(),
		PollInterval: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		t.Error("expected scheduler to be running")
	}

	// Start again should be a no-op
	if err := s.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	s.Stop()

	s.mu.RLock()
	running = s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped")
	}

	// Stop again should not panic
	s.Stop()
}

func TestScheduler_CheckAndEnqueue(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: time.Hour, // Won't actually run in test
	})

	ctx := context.Background()

	// Due schedule
	due := domain.NewScheduledTask("s1", "Sweep", domain.TaskTypeSweepIncoming, time.Hour)
	due.NextRun = time.Now().Add(-time.Minute)
	store.SaveScheduledTask(ctx, due)

	// Not yet due
	future := domain.NewScheduledTask("s2", "Sweep Later", domain.TaskTypeSweepIncoming, time.Hour)
	future.NextRun = time.Now().Add(time.Hour)
	store.SaveScheduledTask(ctx, future)

	// Due but disabled
	disabled := domain.NewScheduledTask("s3", "Disabled", domain.TaskTypeSweepIncoming, time.Hour)
	disabled.Enabled = false
	disabled.NextRun = time.Now().Add(-time.Minute)
	store.SaveScheduledTask(ctx, disabled)

	s.checkAndEnqueue(ctx)

	enqueued := queue.Enqueued()
	if len(enqueued) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(enqueued))
	}
	if enqueued[0].Type != domain.TaskTypeSweepIncoming {
		t.Errorf("expected sweep task, got %s", enqueued[0].Type)
	}

	// NextRun advanced past now
	updated, _ := store.GetScheduledTask(ctx, "s1")
	if !updated.NextRun.After(time.Now()) {
		t.Error("expected next run pushed into the future")
	}
	if updated.LastRun == nil {
		t.Error("expected last run recorded")
	}
}

func TestScheduler_CheckAndEnqueue_EnqueueError(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	queue.EnqueueErr = errors.New("queue unavailable")

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	due := domain.NewScheduledTask("s1", "Sweep", domain.TaskTypeSweepIncoming, time.Hour)
	due.NextRun = time.Now().Add(-time.Minute)
	store.SaveScheduledTask(ctx, due)

	// Should handle the error gracefully and record it
	s.checkAndEnqueue(ctx)

	updated, _ := store.GetScheduledTask(ctx, "s1")
	if updated.LastError != "queue unavailable" {
		t.Errorf("expected last error recorded, got %q", updated.LastError)
	}
}

func TestScheduler_CheckAndEnqueue_LockHeldElsewhere(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	lock := mocks.NewMockDistributedLock()
	lock.Deny = true

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
		Lock:      lock,
	})

	ctx := context.Background()

	due := domain.NewScheduledTask("s1", "Sweep", domain.TaskTypeSweepIncoming, time.Hour)
	due.NextRun = time.Now().Add(-time.Minute)
	store.SaveScheduledTask(ctx, due)

	s.checkAndEnqueue(ctx)

	if len(queue.Enqueued()) != 0 {
		t.Error("expected no enqueue while another instance holds the lock")
	}
}

func TestScheduler_CheckAndEnqueue_LockReleased(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	lock := mocks.NewMockDistributedLock()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
		Lock:      lock,
	})

	s.checkAndEnqueue(context.Background())

	if lock.AcquireCalls != 1 || lock.ReleaseCalls != 1 {
		t.Errorf("expected 1 acquire and 1 release, got %d/%d",
			lock.AcquireCalls, lock.ReleaseCalls)
	}
	if lock.Held("scheduler") {
		t.Error("expected scheduler lock released")
	}
}

func TestScheduler_CheckAndEnqueue_LockErrorRequired(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	lock := mocks.NewMockDistributedLock()
	lock.AcquireErr = errors.New("redis down")

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		Lock:         lock,
		LockRequired: true,
	})

	ctx := context.Background()

	due := domain.NewScheduledTask("s1", "Sweep", domain.TaskTypeSweepIncoming, time.Hour)
	due.NextRun = time.Now().Add(-time.Minute)
	store.SaveScheduledTask(ctx, due)

	s.checkAndEnqueue(ctx)

	if len(queue.Enqueued()) != 0 {
		t.Error("expected no enqueue when the required lock cannot be acquired")
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:        mocks.NewMockSchedulerStore(),
		TaskQueue:    mocks.NewMockTaskQueue(),
		PollInterval: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	s.Stop()

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler stopped after context cancellation")
	}
}

func TestScheduler_EnsureDefaults(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: mocks.NewMockTaskQueue(),
	})

	ctx := context.Background()

	if err := s.EnsureDefaults(ctx, 10*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched, err := store.GetScheduledTask(ctx, "incoming-sweep")
	if err != nil {
		t.Fatalf("expected default schedule registered: %v", err)
	}
	if sched.Type != domain.TaskTypeSweepIncoming {
		t.Errorf("expected sweep schedule, got %s", sched.Type)
	}
	if sched.Interval != 10*time.Minute {
		t.Errorf("expected 10m interval, got %v", sched.Interval)
	}
	if !sched.Enabled {
		t.Error("expected default schedule enabled")
	}
}

func TestScheduler_EnsureDefaults_KeepsExisting(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: mocks.NewMockTaskQueue(),
	})

	ctx := context.Background()

	// Operator-tuned interval must survive restarts.
	existing := domain.NewScheduledTask("incoming-sweep", "Sweep", domain.TaskTypeSweepIncoming, time.Hour)
	store.SaveScheduledTask(ctx, existing)

	if err := s.EnsureDefaults(ctx, 10*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched, _ := store.GetScheduledTask(ctx, "incoming-sweep")
	if sched.Interval != time.Hour {
		t.Errorf("expected existing interval kept, got %v", sched.Interval)
	}
}

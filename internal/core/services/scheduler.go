package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Scheduler turns persisted schedules into queue tasks. It polls the
// schedule store and enqueues whatever is due, which for this service
// means the periodic incoming-folder sweep.
//
// When several instances run the scheduler, a DistributedLock keeps
// them from enqueuing the same cycle twice.
type Scheduler struct {
	store     driven.SchedulerStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig wires the scheduler's collaborators.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // optional, for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // schedule check cadence, default 30s
	LockTTL      time.Duration // distributed lock TTL, default 60s
	LockRequired bool          // skip the cycle when the lock cannot be taken
}

// NewScheduler builds a scheduler, defaulting unset settings.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		store:        cfg.Store,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       cfg.Logger,
		interval:     cfg.PollInterval,
		lockTTL:      cfg.LockTTL,
		lockRequired: cfg.LockRequired,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.interval == 0 {
		s.interval = 30 * time.Second
	}
	if s.lockTTL == 0 {
		s.lockTTL = 60 * time.Second
	}
	if s.lock != nil {
		// a provided lock is treated as required
		s.lockRequired = true
	}
	return s
}

// Start launches the poll loop. Starting a running scheduler does
// nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop signals the poll loop and blocks until it exits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// first cycle runs immediately
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue runs one cycle: take the lock when configured, then
// enqueue a task for every due schedule and advance its run times.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler", s.lockTTL)
		if err != nil {
			s.logger.Warn("scheduler lock acquire failed", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held elsewhere, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, "scheduler"); err != nil {
					s.logger.Warn("scheduler lock release failed", "error", err)
				}
			}()
		}
	}

	scheduled, err := s.store.GetDueScheduledTasks(ctx)
	if err != nil {
		s.logger.Error("due schedule lookup failed", "error", err)
		return
	}

	for _, sched := range scheduled {
		if !sched.Enabled || !sched.IsDue() {
			continue
		}

		task := domain.NewTask(sched.Type, nil)

		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("scheduled task enqueue failed",
				"scheduled_id", sched.ID,
				"error", err,
			)
			_ = s.store.UpdateLastRun(ctx, sched.ID, err.Error())
			continue
		}

		s.logger.Info("scheduled task enqueued",
			"scheduled_id", sched.ID,
			"task_id", task.ID,
			"task_type", task.Type,
		)

		if err := s.store.UpdateLastRun(ctx, sched.ID, ""); err != nil {
			s.logger.Warn("schedule last-run update failed",
				"scheduled_id", sched.ID, "error", err)
		}
	}
}

// EnsureDefaults persists the default schedules if they are missing.
// Existing schedules keep their operator-tuned intervals.
func (s *Scheduler) EnsureDefaults(ctx context.Context, sweepInterval time.Duration) error {
	for _, sched := range domain.DefaultSchedulerConfig(sweepInterval) {
		if _, err := s.store.GetScheduledTask(ctx, sched.ID); err == nil {
			continue
		}
		if err := s.store.SaveScheduledTask(ctx, sched); err != nil {
			return err
		}
		s.logger.Info("registered default schedule",
			"scheduled_id", sched.ID, "interval", sched.Interval)
	}
	return nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
	"github.com/lunavision/facesink/internal/core/ports/driving"
	"github.com/lunavision/facesink/internal/core/services"
)

// Worker drains the task queue and dispatches each task to the ingest
// pipeline. One Worker runs a fixed number of dequeue goroutines.
type Worker struct {
	taskQueue driven.TaskQueue
	pipeline  driving.IngestService
	scheduler *services.Scheduler
	logger    *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config wires the worker's collaborators. Scheduler may be nil when
// sweeps are triggered externally.
type Config struct {
	TaskQueue      driven.TaskQueue
	Pipeline       driving.IngestService
	Scheduler      *services.Scheduler
	Logger         *slog.Logger
	Concurrency    int
	DequeueTimeout int // seconds to block on an empty queue
}

// New builds a Worker, filling in defaults for zero-valued settings.
func New(cfg Config) *Worker {
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		pipeline:       cfg.Pipeline,
		scheduler:      cfg.Scheduler,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		dequeueTimeout: cfg.DequeueTimeout,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = 5
	}
	return w
}

// Start launches the dequeue goroutines and, when configured, the sweep
// scheduler. Calling Start on a running worker does nothing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("scheduler start failed", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.processLoop(ctx, slot)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop signals the dequeue goroutines and blocks until they drain.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until all dequeue goroutines have exited.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) processLoop(ctx context.Context, slot int) {
	logger := w.logger.With("worker_slot", slot)
	logger.Info("dequeue loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("dequeue loop cancelled")
			return
		case <-w.stopCh:
			logger.Info("dequeue loop stopping")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	started := time.Now()

	var err error
	switch task.Type {
	case domain.TaskTypeIngestArtifact:
		err = w.handleIngest(ctx, task)
	case domain.TaskTypeSweepIncoming:
		err = w.handleSweep(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	elapsed := time.Since(started)

	if err != nil {
		logger.Error("task failed", "duration", elapsed, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("nack failed", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", elapsed)
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("ack failed", "ack_error", ackErr)
	}
}

func (w *Worker) handleIngest(ctx context.Context, task *domain.Task) error {
	name := task.ArtifactName()
	if name == "" {
		return fmt.Errorf("artifact not found in task payload")
	}

	_, err := w.pipeline.ProcessArtifact(ctx, name)
	if err != nil {
		// Covers lock contention too: nacking retries after backoff, by
		// which point the competing run has usually finished.
		return err
	}

	// Terminal classifications (malformed, empty, not found, partial
	// failure) are outcomes, not task errors: retrying the task verbatim
	// cannot change them. The run record carries the detail.
	return nil
}

func (w *Worker) handleSweep(ctx context.Context, task *domain.Task) error {
	sweep, err := w.pipeline.SweepIncoming(ctx)
	if err != nil {
		return err
	}

	var failed []string
	for name, result := range sweep.Runs {
		if result.State == domain.RunStateFailed {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		// The sweep itself succeeded; failed artifacts stay in incoming
		// and are picked up on the next pass.
		w.logger.Warn("sweep finished with failed runs",
			"scanned", sweep.Scanned,
			"failed", len(failed),
		)
	}

	return nil
}

// Health reports the worker's liveness together with queue reachability.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	h := Health{Running: running}
	if err := w.taskQueue.Ping(ctx); err != nil {
		h.Error = err.Error()
	} else {
		h.QueueHealth = true
	}
	return h
}

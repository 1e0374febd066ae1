package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

const jsonContentType = "application/json"

// UploadService accepts uploaded documents, persists them to the incoming
// folder and enqueues the ingest task. The HTTP response returns as soon as
// the write succeeds; upload success guarantees durable storage, not load
// completion.
type UploadService struct {
	store    driven.ArtifactStore
	queue    driven.TaskQueue
	runStore driven.RunStore
	logger   *slog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(store driven.ArtifactStore, queue driven.TaskQueue, runStore driven.RunStore, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		store:    store,
		queue:    queue,
		runStore: runStore,
		logger:   logger,
	}
}

// Accept validates the filename, writes the raw bytes under
// incoming/<sanitized-filename> and enqueues an ingest task keyed by
// filename. Returns the storage key.
func (s *UploadService) Accept(ctx context.Context, filename string, data []byte) (string, error) {
	name := domain.SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}
	if !domain.HasJSONExtension(name) {
		return "", fmt.Errorf("%w: only .json files are accepted", domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}

	key := domain.IncomingKey(name)
	if err := s.store.Write(ctx, key, data, jsonContentType); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}

	task := domain.NewIngestTask(name)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The artifact is durable; the periodic sweep will pick it up even
		// though the direct trigger was lost.
		s.logger.Error("failed to enqueue ingest task, sweep will recover",
			"key", key, "error", err)
		return key, nil
	}

	s.logger.Info("artifact accepted", "key", key, "task_id", task.ID, "bytes", len(data))
	return key, nil
}

// RequestSweep enqueues a sweep of the incoming folder and returns the
// task id.
func (s *UploadService) RequestSweep(ctx context.Context) (string, error) {
	task := domain.NewSweepTask()
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("enqueue sweep: %w", err)
	}
	s.logger.Info("sweep requested", "task_id", task.ID)
	return task.ID, nil
}

// RunStatus returns the latest pipeline run recorded for an artifact.
func (s *UploadService) RunStatus(ctx context.Context, artifactName string) (*domain.Run, error) {
	name := domain.SanitizeFilename(artifactName)
	if name == "" {
		return nil, fmt.Errorf("%w: empty artifact name", domain.ErrInvalidInput)
	}
	return s.runStore.GetLatestByArtifact(ctx, name)
}

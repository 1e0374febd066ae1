package driving

import (
	"context"

	"github.com/lunavision/facesink/internal/core/domain"
)

// IngestService drives the artifact ingestion pipeline.
type IngestService interface {
	// ProcessArtifact runs the full pipeline for one incoming artifact.
	ProcessArtifact(ctx context.Context, artifactName string) (*domain.RunResult, error)

	// SweepIncoming reconciles every artifact in the incoming folder.
	SweepIncoming(ctx context.Context) (*domain.SweepResult, error)
}

// UploadService accepts uploaded documents and hands them to the pipeline.
type UploadService interface {
	// Accept validates the filename, stores the raw bytes under the
	// incoming folder and enqueues an ingest task. Returns the storage key.
	Accept(ctx context.Context, filename string, data []byte) (string, error)

	// RequestSweep enqueues a sweep of the incoming folder.
	RequestSweep(ctx context.Context) (string, error)

	// RunStatus returns the latest pipeline run for an artifact.
	RunStatus(ctx context.Context, artifactName string) (*domain.Run, error)
}

// NotifyService notifies matched persons by email.
type NotifyService interface {
	// NotifyRecipients sends one message per tuple. Tuples missing an email
	// address are resolved through the person directory first.
	NotifyRecipients(ctx context.Context, recipients []domain.Recipient) ([]domain.NotifyOutcome, error)
}

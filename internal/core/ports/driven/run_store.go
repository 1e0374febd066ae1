package driven

import (
	"context"

	"github.com/lunavision/facesink/internal/core/domain"
)

// RunStore persists pipeline run records so fire-and-forget runs remain
// observable after the upload response has returned.
type RunStore interface {
	// Save creates or updates a run record.
	Save(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// GetLatestByArtifact retrieves the most recent run for an artifact name.
	GetLatestByArtifact(ctx context.Context, artifactName string) (*domain.Run, error)

	// ListByArtifact retrieves runs for an artifact, newest first.
	ListByArtifact(ctx context.Context, artifactName string, limit int) ([]*domain.Run, error)
}

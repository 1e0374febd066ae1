package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RunStore = (*RunStore)(nil)

// RunStore implements driven.RunStore using PostgreSQL
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Save creates or updates a run record
func (s *RunStore) Save(ctx context.Context, run *domain.Run) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (id, artifact_name, state, stats, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.ArtifactName,
		string(run.State),
		statsJSON,
		run.Error,
		run.StartedAt,
		NullTime(run.CompletedAt),
	)
	return err
}

// Get retrieves a run by ID
func (s *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	query := `
		SELECT id, artifact_name, state, stats, error, started_at, completed_at
		FROM runs
		WHERE id = $1
	`
	return s.scanRun(s.db.QueryRowContext(ctx, query, id))
}

// GetLatestByArtifact retrieves the most recent run for an artifact name
func (s *RunStore) GetLatestByArtifact(ctx context.Context, artifactName string) (*domain.Run, error) {
	query := `
		SELECT id, artifact_name, state, stats, error, started_at, completed_at
		FROM runs
		WHERE artifact_name = $1
		ORDER BY started_at DESC
		LIMIT 1
	`
	return s.scanRun(s.db.QueryRowContext(ctx, query, artifactName))
}

// ListByArtifact retrieves runs for an artifact, newest first
func (s *RunStore) ListByArtifact(ctx context.Context, artifactName string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, artifact_name, state, stats, error, started_at, completed_at
		FROM runs
		WHERE artifact_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, artifactName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *RunStore) scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var state string
	var statsJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.ArtifactName,
		&state,
		&statsJSON,
		&run.Error,
		&run.StartedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	run.State = domain.RunState(state)
	run.CompletedAt = TimePtr(completedAt)
	if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal run stats: %w", err)
	}

	return &run, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
	"github.com/lunavision/facesink/internal/core/ports/driving"
)

var _ driving.IngestService = (*IngestPipeline)(nil)

// IngestPipeline coordinates the end-to-end ingestion of one artifact:
//  1. Wait for the artifact to become visible (object stores are
//     eventually consistent after upload)
//  2. Read and extract the face document
//  3. Resolve face ids already present in the table
//  4. Plan rows for the new faces
//  5. Bulk insert, surfacing per-row errors
//  6. Finalize: archive on full success, delete duplicate-only sources
//
// A run is sequential and never rolls back partial progress. Failures
// before the insert leave the artifact untouched so a later sweep can
// retry from scratch.
type IngestPipeline struct {
	store     driven.ArtifactStore
	table     driven.FaceTable
	runStore  driven.RunStore
	extractor *Extractor
	lock      driven.DistributedLock
	logger    *slog.Logger

	visibilityAttempts int
	visibilityInterval time.Duration
	lockTTL            time.Duration
}

// IngestPipelineConfig holds dependencies for IngestPipeline.
type IngestPipelineConfig struct {
	Store    driven.ArtifactStore
	Table    driven.FaceTable
	RunStore driven.RunStore
	Lock     driven.DistributedLock // Optional: per-artifact mutual exclusion
	Logger   *slog.Logger

	// VisibilityAttempts bounds the existence poll (default: 10)
	VisibilityAttempts int
	// VisibilityInterval spaces the poll attempts (default: 1s)
	VisibilityInterval time.Duration
	// LockTTL is the TTL of the per-artifact lock (default: 2m)
	LockTTL time.Duration
}

// NewIngestPipeline creates a new ingest pipeline.
func NewIngestPipeline(cfg IngestPipelineConfig) *IngestPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := cfg.VisibilityAttempts
	if attempts <= 0 {
		attempts = 10
	}

	interval := cfg.VisibilityInterval
	if interval <= 0 {
		interval = time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}

	return &IngestPipeline{
		store:              cfg.Store,
		table:              cfg.Table,
		runStore:           cfg.RunStore,
		extractor:          NewExtractor(),
		lock:               cfg.Lock,
		logger:             logger,
		visibilityAttempts: attempts,
		visibilityInterval: interval,
		lockTTL:            lockTTL,
	}
}

// ProcessArtifact runs the full pipeline for one incoming artifact.
// Returns domain.ErrRunInProgress when another worker holds the artifact's
// lock; the caller may retry later.
func (p *IngestPipeline) ProcessArtifact(ctx context.Context, artifactName string) (*domain.RunResult, error) {
	return p.process(ctx, artifactName, p.visibilityAttempts)
}

func (p *IngestPipeline) process(ctx context.Context, artifactName string, visibilityAttempts int) (*domain.RunResult, error) {
	key := domain.IncomingKey(artifactName)

	if p.lock != nil {
		lockName := "ingest:" + key
		acquired, err := p.lock.Acquire(ctx, lockName, p.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire artifact lock: %w", err)
		}
		if !acquired {
			p.logger.Info("artifact lock held elsewhere, skipping", "key", key)
			return nil, domain.ErrRunInProgress
		}
		defer func() {
			if err := p.lock.Release(ctx, lockName); err != nil {
				p.logger.Warn("failed to release artifact lock", "key", key, "error", err)
			}
		}()
	}

	startTime := time.Now()
	run := domain.NewRun(artifactName)
	p.saveRun(ctx, run)

	p.logger.Info("starting ingest run", "run_id", run.ID, "key", key)

	result, err := p.runPipeline(ctx, key, run, visibilityAttempts)
	if err != nil {
		run.Finish(domain.RunStateFailed, err.Error())
		p.saveRun(ctx, run)
		p.logger.Error("ingest run failed",
			"run_id", run.ID,
			"key", key,
			"state", run.State,
			"duration_seconds", time.Since(startTime).Seconds(),
			"error", err,
		)
		return &domain.RunResult{
			ArtifactName: artifactName,
			State:        domain.RunStateFailed,
			Stats:        run.Stats,
			Duration:     time.Since(startTime).Seconds(),
			Error:        err.Error(),
		}, err
	}

	result.Duration = time.Since(startTime).Seconds()

	p.logger.Info("ingest run finished",
		"run_id", run.ID,
		"key", key,
		"state", result.State,
		"faces_seen", run.Stats.FacesSeen,
		"rows_inserted", run.Stats.RowsInserted,
		"duplicates", run.Stats.Duplicates,
		"row_errors", run.Stats.RowErrors,
		"duration_seconds", result.Duration,
	)

	return result, nil
}

// runPipeline walks the state machine. It returns an error only for
// aborting failures; terminal classifications (NOT_FOUND, MALFORMED,
// EMPTY, PARTIAL_FAILURE) are results, not errors.
func (p *IngestPipeline) runPipeline(ctx context.Context, key string, run *domain.Run, visibilityAttempts int) (*domain.RunResult, error) {
	// PENDING_VISIBILITY: absorb object-store consistency lag after upload.
	visible, err := p.waitForVisibility(ctx, key, visibilityAttempts)
	if err != nil {
		return nil, err
	}
	if !visible {
		p.logger.Warn("artifact never became visible, leaving for next sweep",
			"run_id", run.ID, "key", key, "attempts", visibilityAttempts)
		return p.finishRun(ctx, run, domain.RunStateNotFound, domain.ErrNotVisible.Error()), nil
	}

	raw, err := p.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted between the poll and the read. Same recovery path.
			return p.finishRun(ctx, run, domain.RunStateNotFound, domain.ErrNotVisible.Error()), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, key, err)
	}

	// EXTRACTED
	doc, err := p.extractor.Extract(raw)
	if err != nil {
		p.logger.Warn("malformed artifact, leaving in place",
			"run_id", run.ID, "key", key, "error", err)
		return p.finishRun(ctx, run, domain.RunStateMalformed, err.Error()), nil
	}

	run.Stats.FacesSeen = len(doc.Faces)
	run.State = domain.RunStateExtracted
	p.saveRun(ctx, run)

	if len(doc.Faces) == 0 {
		p.logger.Info("no faces in artifact, skipping", "run_id", run.ID, "key", key)
		return p.finishRun(ctx, run, domain.RunStateEmpty, ""), nil
	}

	// RESOLVED
	existing, err := p.table.ExistingIDs(ctx, doc.FaceIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDedupQuery, err)
	}

	run.State = domain.RunStateResolved
	p.saveRun(ctx, run)

	rows, duplicates := Plan(doc, existing)
	run.Stats.Duplicates = len(duplicates)

	// Zero new rows means every face was already loaded: the source
	// artifact is redundant and gets deleted rather than archived.
	if len(rows) == 0 {
		p.logger.Info("all faces already loaded, removing artifact",
			"run_id", run.ID, "key", key, "duplicates", duplicates)
		if err := p.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("%w: delete %s: %v", domain.ErrStoreUnavailable, key, err)
		}
		return p.finishRun(ctx, run, domain.RunStateRemoved, ""), nil
	}

	// LOADED. The zero-row guard above keeps this the only insert site.
	rowErrs, err := p.table.InsertRows(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: insert: %v", domain.ErrStoreUnavailable, err)
	}

	run.State = domain.RunStateLoaded
	run.Stats.RowsInserted = len(rows) - len(rowErrs)
	run.Stats.RowErrors = len(rowErrs)
	p.saveRun(ctx, run)

	if len(rowErrs) > 0 {
		// Partial insert is the least safe point: no compensation exists,
		// so log enough context for manual reconciliation and leave the
		// artifact in incoming for a retried full reprocessing.
		for _, re := range rowErrs {
			p.logger.Error("row rejected by face table",
				"run_id", run.ID, "key", key, "face_id", re.FaceID, "reason", re.Reason)
		}
		result := p.finishRun(ctx, run, domain.RunStatePartialFailure, "")
		result.RowErrors = rowErrs
		return result, nil
	}

	// ARCHIVED: move to the processed folder, preserving the filename.
	destKey := domain.ProcessedKey(run.ArtifactName)
	if _, err := p.store.Move(ctx, key, destKey); err != nil {
		// Rows are already inserted; a later sweep will classify every
		// face as duplicate and remove the source.
		return nil, fmt.Errorf("%w: move %s to %s: %v", domain.ErrStoreUnavailable, key, destKey, err)
	}

	return p.finishRun(ctx, run, domain.RunStateArchived, ""), nil
}

// SweepIncoming lists the incoming folder and runs the pipeline for every
// artifact, enabling catch-up processing independent of the upload trigger.
// The listing already proves existence, so the visibility poll degenerates
// to a single attempt.
func (p *IngestPipeline) SweepIncoming(ctx context.Context) (*domain.SweepResult, error) {
	keys, err := p.store.List(ctx, domain.FolderIncoming+"/")
	if err != nil {
		return nil, fmt.Errorf("%w: list incoming: %v", domain.ErrStoreUnavailable, err)
	}

	p.logger.Info("sweeping incoming folder", "artifacts", len(keys))

	sweep := &domain.SweepResult{
		Scanned: len(keys),
		Runs:    make(map[string]*domain.RunResult, len(keys)),
	}

	for _, key := range keys {
		select {
		case <-ctx.Done():
			return sweep, ctx.Err()
		default:
		}

		name := domain.NameFromKey(key)
		result, err := p.process(ctx, name, 1)
		if err != nil {
			if errors.Is(err, domain.ErrRunInProgress) {
				continue
			}
			// One artifact's failure never aborts the sweep.
			p.logger.Error("sweep: artifact run failed", "key", key, "error", err)
			sweep.Runs[name] = &domain.RunResult{
				ArtifactName: name,
				State:        domain.RunStateFailed,
				Error:        err.Error(),
			}
			continue
		}
		sweep.Runs[name] = result
	}

	return sweep, nil
}

// waitForVisibility polls Exists with bounded attempts and spacing.
// Returns false when the bound is exhausted without the key appearing.
func (p *IngestPipeline) waitForVisibility(ctx context.Context, key string, attempts int) (bool, error) {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(p.visibilityInterval):
			}
		}

		exists, err := p.store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("%w: exists %s: %v", domain.ErrStoreUnavailable, key, err)
		}
		if exists {
			return true, nil
		}

		p.logger.Debug("artifact not visible yet",
			"key", key, "attempt", i+1, "max_attempts", attempts)
	}
	return false, nil
}

func (p *IngestPipeline) finishRun(ctx context.Context, run *domain.Run, state domain.RunState, errText string) *domain.RunResult {
	run.Finish(state, errText)
	p.saveRun(ctx, run)
	return &domain.RunResult{
		ArtifactName: run.ArtifactName,
		State:        state,
		Stats:        run.Stats,
		Error:        errText,
	}
}

func (p *IngestPipeline) saveRun(ctx context.Context, run *domain.Run) {
	if p.runStore == nil {
		return
	}
	if err := p.runStore.Save(ctx, run); err != nil {
		p.logger.Warn("failed to save run state",
			"run_id", run.ID, "artifact", run.ArtifactName, "error", err)
	}
}

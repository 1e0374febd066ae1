package domain

import "time"

// RunState is the lifecycle state of one artifact processing run.
type RunState string

const (
	RunStatePendingVisibility RunState = "pending_visibility"
	RunStateExtracted         RunState = "extracted"
	RunStateResolved          RunState = "resolved"
	RunStateLoaded            RunState = "loaded"

	// Terminal states
	RunStateArchived       RunState = "archived"
	RunStateRemoved        RunState = "removed"
	RunStatePartialFailure RunState = "partial_failure"
	RunStateNotFound       RunState = "not_found"
	RunStateMalformed      RunState = "malformed"
	RunStateEmpty          RunState = "empty"
	RunStateFailed         RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateArchived, RunStateRemoved, RunStatePartialFailure,
		RunStateNotFound, RunStateMalformed, RunStateEmpty, RunStateFailed:
		return true
	}
	return false
}

// RunStats counts what a run did.
type RunStats struct {
	FacesSeen    int `json:"faces_seen"`
	RowsInserted int `json:"rows_inserted"`
	Duplicates   int `json:"duplicates"`
	RowErrors    int `json:"row_errors"`
}

// Run records one pipeline pass over an artifact. Persisted so that
// fire-and-forget runs stay observable after the upload response returns.
type Run struct {
	ID           string     `json:"id"`
	ArtifactName string     `json:"artifact_name"`
	State        RunState   `json:"state"`
	Stats        RunStats   `json:"stats"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewRun starts a run record for an artifact.
func NewRun(artifactName string) *Run {
	return &Run{
		ID:           GenerateID(),
		ArtifactName: artifactName,
		State:        RunStatePendingVisibility,
		StartedAt:    time.Now(),
	}
}

// Finish moves the run into a terminal state.
func (r *Run) Finish(state RunState, errText string) {
	now := time.Now()
	r.State = state
	r.Error = errText
	r.CompletedAt = &now
}

// RunResult is what a completed pipeline run reports to its caller.
type RunResult struct {
	ArtifactName string     `json:"artifact_name"`
	State        RunState   `json:"state"`
	Stats        RunStats   `json:"stats"`
	RowErrors    []RowError `json:"row_errors,omitempty"`
	Duration     float64    `json:"duration_seconds"`
	Error        string     `json:"error,omitempty"`
}

// SweepResult aggregates the per-artifact outcomes of a folder sweep.
type SweepResult struct {
	Scanned int                   `json:"scanned"`
	Runs    map[string]*RunResult `json:"runs"`
}

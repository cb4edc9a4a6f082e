/*
store.go - Persistence interface for planning runs and output batches

PURPOSE:
  Defines the boundary between the engine and batch storage. Published
  batches are APPEND-ONLY: a new run supersedes the previous one for
  "current" queries, but history is never rewritten or deleted.

BATCH LIFECYCLE:
  CreateRun     -> run row exists, state = collecting
  UpdateRun     -> state advances as the orchestrator moves through stages
  PublishBatch  -> material + capacity batches and the summary land
                   atomically together with the complete state; a run that
                   fails or is cancelled publishes NOTHING
  "current"     -> LatestCompleted at query time, never an in-place switch

IMPLEMENTATIONS:
  - planning/store: in-memory, for tests and scenarios
  - store/sqlite:   durable storage behind the HTTP surface

SEE ALSO:
  - run.go: the only writer of runs and batches
*/
package planning

import (
	"context"
	"time"
)

// =============================================================================
// RUN STATE MACHINE
// =============================================================================

// RunState is the orchestrator stage a run is in. Failed is terminal and
// reachable from every stage; cancelled runs land there too, with the
// cancellation recorded as the cause.
type RunState string

const (
	RunCollecting         RunState = "collecting"
	RunExploding          RunState = "exploding"
	RunNetting            RunState = "netting"
	RunCapacityEvaluating RunState = "capacity-evaluating"
	RunPublishing         RunState = "publishing"
	RunComplete           RunState = "complete"
	RunFailed             RunState = "failed"
)

// RunRecord is the pollable state of one planning run.
type RunRecord struct {
	ID         RunID
	FacilityID FacilityID
	AsOf       Bucket
	State      RunState
	Error      string // cause, only when State == RunFailed
	StartedAt  time.Time
	FinishedAt time.Time // zero until terminal
}

// Terminal reports whether the run has finished, successfully or not.
func (r RunRecord) Terminal() bool {
	return r.State == RunComplete || r.State == RunFailed
}

// =============================================================================
// BATCH STORE
// =============================================================================

// BatchStore persists runs and their immutable output batches.
type BatchStore interface {
	// CreateRun registers a new run in the collecting state.
	CreateRun(ctx context.Context, run RunRecord) error

	// UpdateRun advances a run's state (and error/finish time when terminal).
	UpdateRun(ctx context.Context, run RunRecord) error

	// PublishBatch atomically stores both batches, the summary, and the
	// complete state. This is the only way output records come into being.
	PublishBatch(ctx context.Context, run RunRecord, mat MaterialRequirementBatch, cap CapacityLoadBatch, sum RunSummary) error

	// GetRun returns one run, ErrRunNotFound when absent.
	GetRun(ctx context.Context, id RunID) (RunRecord, error)

	// ListRuns returns the facility's runs, most recent first.
	ListRuns(ctx context.Context, facility FacilityID) ([]RunRecord, error)

	// LatestCompleted resolves the facility's current batch owner: the most
	// recently finished complete run. ErrRunNotFound when none completed.
	LatestCompleted(ctx context.Context, facility FacilityID) (RunRecord, error)

	// MaterialBatch returns the published material batch for a run.
	MaterialBatch(ctx context.Context, id RunID) (MaterialRequirementBatch, error)

	// CapacityBatch returns the published capacity batch for a run.
	CapacityBatch(ctx context.Context, id RunID) (CapacityLoadBatch, error)

	// Summary returns the published run summary.
	Summary(ctx context.Context, id RunID) (RunSummary, error)
}

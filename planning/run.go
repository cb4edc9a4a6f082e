/*
run.go - Planning run orchestrator

PURPOSE:
  Sequences one complete regenerative planning run through its stages:

    collecting -> exploding -> netting -> capacity-evaluating
               -> publishing -> complete

  with failed as the terminal state reachable from any stage on an
  unrecoverable input error. Per-item failures (bom cycles, bad item
  config) never fail the run; they ride inside the published batch.

GUARANTEES:
  - One active run per facility: a scope lock serializes concurrent
    triggers instead of letting them interleave batch writes
  - Inputs are snapshotted once at start and never re-read, so outputs are
    a pure function of the snapshot
  - Cancellation is honored at stage and level boundaries only; a
    cancelled or failed run discards its batch entirely (nothing partial
    is ever published)
  - Run state is persisted at every transition, so callers can poll
    progress through the batch store

SEE ALSO:
  - planner.go: exploding/netting stages
  - capacity.go: capacity-evaluating stage
  - store.go: the publish contract
*/
package planning

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config is the per-orchestrator planning configuration.
type Config struct {
	Facility FacilityID

	// BottleneckThreshold is the soft utilization level for relative
	// bottleneck flagging. Zero means DefaultBottleneckThreshold.
	BottleneckThreshold decimal.Decimal

	// Parallelism bounds concurrent item netting within one level.
	// Zero or negative means sequential.
	Parallelism int
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs complete planning cycles against a set of input
// sources and publishes the results to a batch store.
type Orchestrator struct {
	cfg       Config
	catalog   CatalogSource
	demand    DemandSource
	inventory InventorySource
	store     BatchStore
	lock      *ScopeLock
	log       *logrus.Logger
}

// NewOrchestrator wires an orchestrator. A nil logger discards log output.
func NewOrchestrator(cfg Config, cat CatalogSource, dem DemandSource, inv InventorySource, store BatchStore, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Orchestrator{
		cfg:       cfg,
		catalog:   cat,
		demand:    dem,
		inventory: inv,
		store:     store,
		lock:      NewScopeLock(),
		log:       log,
	}
}

// RunResult is everything a completed run produced.
type RunResult struct {
	Run       RunRecord
	Material  MaterialRequirementBatch
	Capacity  CapacityLoadBatch
	Summary   RunSummary
	Shortages []MaterialRequirement // shortage lines in report order
}

// Run executes one full planning run as of the given day. On a fatal error
// the returned run record is in the failed state and nothing was published.
func (o *Orchestrator) Run(ctx context.Context, asOf Bucket) (*RunResult, error) {
	run, err := o.createRun(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, run)
}

// Start triggers a fire-and-forget run and returns its id. The run row is
// persisted before the worker goroutine is spawned, so the id resolves
// through the batch store from the moment it is returned, including while
// the run queues behind another one on the facility scope lock.
func (o *Orchestrator) Start(ctx context.Context, asOf Bucket) (RunID, error) {
	run, err := o.createRun(ctx, asOf)
	if err != nil {
		return "", err
	}
	go func() {
		// The fatal cause is already recorded on the run row and logged.
		_, _ = o.run(ctx, run)
	}()
	return run.ID, nil
}

// createRun persists the initial collecting-state row.
func (o *Orchestrator) createRun(ctx context.Context, asOf Bucket) (RunRecord, error) {
	run := RunRecord{
		ID:         RunID(uuid.NewString()),
		FacilityID: o.cfg.Facility,
		AsOf:       asOf,
		State:      RunCollecting,
		StartedAt:  time.Now().UTC(),
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return RunRecord{}, &FatalError{Stage: string(RunCollecting), Cause: err}
	}
	return run, nil
}

func (o *Orchestrator) run(ctx context.Context, run RunRecord) (*RunResult, error) {
	o.lock.Lock(o.cfg.Facility)
	defer o.lock.Unlock(o.cfg.Facility)

	asOf := run.AsOf
	log := o.log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"facility": o.cfg.Facility,
		"as_of":    asOf.String(),
	})
	log.Info("planning run started")

	// ---- collecting -------------------------------------------------------
	snap, err := TakeSnapshot(ctx, o.catalog, o.demand, o.inventory)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}
	log.WithFields(logrus.Fields{
		"items":       len(snap.Items),
		"bom_lines":   len(snap.BOMLines),
		"demand":      len(snap.Demand),
		"work_orders": len(snap.WorkOrders),
	}).Debug("snapshot taken")

	// ---- exploding --------------------------------------------------------
	run, err = o.advance(ctx, run, RunExploding)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}
	pass := newMRPPass(snap)

	// ---- netting ----------------------------------------------------------
	run, err = o.advance(ctx, run, RunNetting)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}
	outcome, err := pass.run(ctx, asOf, o.cfg.Parallelism)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}
	shortages := ClassifyShortages(outcome.Requirements, snap.ItemByID, asOf)

	// ---- capacity-evaluating ----------------------------------------------
	run, err = o.advance(ctx, run, RunCapacityEvaluating)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}
	loads, capWarnings := EvaluateCapacity(snap, o.cfg.BottleneckThreshold)

	// ---- publishing -------------------------------------------------------
	run, err = o.advance(ctx, run, RunPublishing)
	if err != nil {
		return o.fail(ctx, run, log, err)
	}

	material := MaterialRequirementBatch{
		RunID:        run.ID,
		FacilityID:   run.FacilityID,
		AsOf:         asOf,
		Requirements: outcome.Requirements,
		ItemErrors:   outcome.ItemErrors,
		Warnings:     outcome.Warnings,
	}
	capacity := CapacityLoadBatch{
		RunID:      run.ID,
		FacilityID: run.FacilityID,
		AsOf:       asOf,
		Loads:      loads,
		Warnings:   capWarnings,
	}
	summary := Summarize(material, snap.ItemByID)

	run.State = RunComplete
	run.FinishedAt = time.Now().UTC()
	if err := o.store.PublishBatch(ctx, run, material, capacity, summary); err != nil {
		return o.fail(ctx, run, log, &FatalError{Stage: string(RunPublishing), Cause: err})
	}

	log.WithFields(logrus.Fields{
		"requirements": len(material.Requirements),
		"item_errors":  len(material.ItemErrors),
		"shortages":    len(shortages),
		"bottlenecks":  countBottlenecks(loads),
		"duration":     time.Since(run.StartedAt).String(),
	}).Info("planning run complete")

	return &RunResult{
		Run:       run,
		Material:  material,
		Capacity:  capacity,
		Summary:   summary,
		Shortages: shortages,
	}, nil
}

// advance moves the run to the next stage, honoring cancellation at the
// boundary, and persists the transition.
func (o *Orchestrator) advance(ctx context.Context, run RunRecord, next RunState) (RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return run, ErrRunCancelled
	}
	run.State = next
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return run, &FatalError{Stage: string(next), Cause: err}
	}
	return run, nil
}

// fail transitions the run to its terminal failed state. The batch in
// progress is simply dropped; the store never saw any of its records.
func (o *Orchestrator) fail(ctx context.Context, run RunRecord, log *logrus.Entry, cause error) (*RunResult, error) {
	run.State = RunFailed
	run.Error = cause.Error()
	run.FinishedAt = time.Now().UTC()

	// Persist the terminal state on a fresh context: the original one may
	// be the reason the run is failing.
	if err := o.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Error("failed to record run failure")
	}
	log.WithError(cause).WithField("state", run.State).Warn("planning run failed, nothing published")
	return &RunResult{Run: run}, cause
}

func countBottlenecks(loads []CapacityLoad) int {
	n := 0
	for _, l := range loads {
		if l.Bottleneck {
			n++
		}
	}
	return n
}

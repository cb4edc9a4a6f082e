package planning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/planning-engine/factory"
	"github.com/warp/planning-engine/planning"
	"github.com/warp/planning-engine/planning/store"
)

func orchestratorFor(sc factory.Scenario, batches planning.BatchStore) *planning.Orchestrator {
	cfg := planning.Config{Facility: "plant-1", Parallelism: 4}
	return planning.NewOrchestrator(cfg, sc.Catalog, sc.Demand, sc.Inventory, batches, nil)
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestRun_FurnitureScenarioCompletes(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	result, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.Equal(t, planning.RunComplete, result.Run.State)

	// Every item in the chair structure was planned.
	assert.Equal(t, 6, result.Summary.TotalMaterials)
	assert.NotEmpty(t, result.Material.Requirements)
	assert.Empty(t, result.Material.ItemErrors)

	// The rush order inside total lead time surfaced as a shortage.
	require.NotEmpty(t, result.Shortages)
	assert.True(t, result.Summary.TotalShortageValue.IsPositive())

	// What the store serves matches what the run returned.
	published, err := batches.MaterialBatch(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Material, published)

	sum, err := batches.Summary(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Summary, sum)
}

func TestRun_DeterministicRerun(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	first, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.NotEqual(t, first.Run.ID, second.Run.ID)

	// Identical outputs apart from run identity.
	a, b := first.Material, second.Material
	a.RunID, b.RunID = "", ""
	assert.Equal(t, a, b)

	ca, cb := first.Capacity, second.Capacity
	ca.RunID, cb.RunID = "", ""
	assert.Equal(t, ca, cb)

	sa, sb := first.Summary, second.Summary
	sa.RunID, sb.RunID = "", ""
	assert.Equal(t, sa, sb)
}

func TestRun_LatestCompletedSupersedes(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	first, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)

	current, err := batches.LatestCompleted(context.Background(), "plant-1")
	require.NoError(t, err)
	assert.Equal(t, second.Run.ID, current.ID)

	// History is kept, never rewritten.
	runs, err := batches.ListRuns(context.Background(), "plant-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	firstAgain, err := batches.MaterialBatch(context.Background(), first.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Material, firstAgain)
}

func TestStart_PollableToCompletion(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	id, err := orch.Start(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	deadline := time.After(5 * time.Second)
	for {
		run, err := batches.GetRun(context.Background(), id)
		if err == nil && run.Terminal() {
			require.Equal(t, planning.RunComplete, run.State)
			return
		}
		select {
		case <-deadline:
			t.Fatal("run did not reach a terminal state in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// stalledCatalog serves a real catalog but holds every Items call on a gate,
// keeping a run parked in its collecting stage until the test releases it.
type stalledCatalog struct {
	planning.CatalogSource
	started chan struct{}
	gate    chan struct{}
}

func (c *stalledCatalog) Items(ctx context.Context) ([]planning.Item, error) {
	c.started <- struct{}{}
	<-c.gate
	return c.CatalogSource.Items(ctx)
}

func TestStart_QueuedRunPollableImmediately(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()

	slow := &stalledCatalog{
		CatalogSource: sc.Catalog,
		started:       make(chan struct{}, 2),
		gate:          make(chan struct{}),
	}
	cfg := planning.Config{Facility: "plant-1", Parallelism: 4}
	orch := planning.NewOrchestrator(cfg, slow, sc.Demand, sc.Inventory, batches, nil)

	first, err := orch.Start(context.Background(), sc.AsOf)
	require.NoError(t, err)
	// Wait until the first run holds the facility lock, parked in collecting.
	<-slow.started

	second, err := orch.Start(context.Background(), sc.AsOf)
	require.NoError(t, err)

	// The queued run must resolve through the store while it waits.
	queued, err := batches.GetRun(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, planning.RunCollecting, queued.State)

	close(slow.gate)
	deadline := time.After(5 * time.Second)
	for {
		a, errA := batches.GetRun(context.Background(), first)
		b, errB := batches.GetRun(context.Background(), second)
		if errA == nil && errB == nil && a.Terminal() && b.Terminal() {
			assert.Equal(t, planning.RunComplete, a.State)
			assert.Equal(t, planning.RunComplete, b.State)
			return
		}
		select {
		case <-deadline:
			t.Fatal("runs did not reach a terminal state in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestRun_CycleIsolatedEndToEnd(t *testing.T) {
	sc, err := factory.ByName("electronics-line")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	result, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.Equal(t, planning.RunComplete, result.Run.State)

	failed := make(map[planning.ItemID]planning.ErrorClass)
	for _, e := range result.Material.ItemErrors {
		failed[e.ItemID] = e.Class
	}
	// The two boards cycle; the controller sits above them.
	assert.Equal(t, planning.ErrorStructural, failed["MAIN-BOARD"])
	assert.Equal(t, planning.ErrorStructural, failed["IO-BOARD"])
	assert.Equal(t, planning.ErrorStructural, failed["CONTROLLER"])
	// The misconfigured housing failed on its own.
	assert.Equal(t, planning.ErrorConfiguration, failed["HOUSING"])

	// The healthy sensor line still planned.
	var sensorPlanned, pcbPlanned bool
	for _, r := range result.Material.Requirements {
		switch r.ItemID {
		case "SENSOR":
			sensorPlanned = true
		case "SENSOR-PCB":
			pcbPlanned = true
		case "MAIN-BOARD", "IO-BOARD":
			t.Errorf("cycle member %s produced a requirement", r.ItemID)
		}
	}
	assert.True(t, sensorPlanned, "SENSOR was not planned")
	assert.True(t, pcbPlanned, "SENSOR-PCB was not planned")

	// The overloaded SMT line shows up as a bottleneck.
	var smtBottleneck bool
	for _, l := range result.Capacity.Loads {
		if l.ResourceID == "smt-line" && l.Bottleneck {
			smtBottleneck = true
		}
	}
	assert.True(t, smtBottleneck, "overloaded smt line not flagged")
}

func TestRun_FatalFailurePublishesNothing(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	cfg := planning.Config{Facility: "plant-1"}
	broken := &factory.FailingCatalog{Err: errors.New("catalog service timeout")}
	orch := planning.NewOrchestrator(cfg, broken, sc.Demand, sc.Inventory, batches, nil)

	result, err := orch.Run(context.Background(), sc.AsOf)
	require.Error(t, err)
	assert.True(t, planning.IsFatal(err))
	assert.True(t, errors.Is(err, planning.ErrCatalogUnavailable))
	assert.Equal(t, planning.RunFailed, result.Run.State)
	assert.NotEmpty(t, result.Run.Error)

	// The failed state is pollable but no batch exists.
	run, err := batches.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, planning.RunFailed, run.State)
	_, err = batches.MaterialBatch(context.Background(), result.Run.ID)
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
	_, err = batches.LatestCompleted(context.Background(), "plant-1")
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
}

func TestRun_CleanRerunAfterFailure(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	cfg := planning.Config{Facility: "plant-1", Parallelism: 4}

	broken := planning.NewOrchestrator(cfg, &factory.FailingCatalog{Err: errors.New("down")}, sc.Demand, sc.Inventory, batches, nil)
	_, err = broken.Run(context.Background(), sc.AsOf)
	require.Error(t, err)

	// Sources recover; the next run proceeds as if the failure never happened.
	healthy := orchestratorFor(sc, batches)
	result, err := healthy.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.Equal(t, planning.RunComplete, result.Run.State)

	current, err := batches.LatestCompleted(context.Background(), "plant-1")
	require.NoError(t, err)
	assert.Equal(t, result.Run.ID, current.ID)

	runs, err := batches.ListRuns(context.Background(), "plant-1")
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRun_CancelledBeforeStagesPublishesNothing(t *testing.T) {
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	batches := store.NewMemory()
	orch := orchestratorFor(sc, batches)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Run(ctx, sc.AsOf)
	require.Error(t, err)
	assert.ErrorIs(t, err, planning.ErrRunCancelled)
	assert.Equal(t, planning.RunFailed, result.Run.State)
	_, err = batches.MaterialBatch(context.Background(), result.Run.ID)
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/planning-engine/factory"
	"github.com/warp/planning-engine/planning"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "planning.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func testRun(id string, state planning.RunState) planning.RunRecord {
	return planning.RunRecord{
		ID:         planning.RunID(id),
		FacilityID: "plant-1",
		AsOf:       planning.NewBucket(2026, time.September, 1),
		State:      state,
		StartedAt:  time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// RUN LIFECYCLE
// =============================================================================

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", planning.RunCollecting)
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	run.State = planning.RunNetting
	require.NoError(t, s.UpdateRun(ctx, run))
	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, planning.RunNetting, got.State)
	assert.True(t, got.FinishedAt.IsZero())

	run.State = planning.RunFailed
	run.Error = "catalog source unavailable: timeout"
	run.FinishedAt = run.StartedAt.Add(2 * time.Second)
	require.NoError(t, s.UpdateRun(ctx, run))
	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.True(t, got.Terminal())
}

func TestRunNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
	assert.ErrorIs(t, s.UpdateRun(ctx, testRun("nope", planning.RunNetting)), planning.ErrRunNotFound)
	_, err = s.LatestCompleted(ctx, "plant-1")
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
	_, err = s.Summary(ctx, "nope")
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
}

func TestListRuns_NewestFirstPerFacility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	early := testRun("run-early", planning.RunComplete)
	late := testRun("run-late", planning.RunCollecting)
	late.StartedAt = early.StartedAt.Add(time.Hour)
	other := testRun("run-other", planning.RunComplete)
	other.FacilityID = "plant-2"

	require.NoError(t, s.CreateRun(ctx, early))
	require.NoError(t, s.CreateRun(ctx, late))
	require.NoError(t, s.CreateRun(ctx, other))

	runs, err := s.ListRuns(ctx, "plant-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, planning.RunID("run-late"), runs[0].ID)
	assert.Equal(t, planning.RunID("run-early"), runs[1].ID)
}

// =============================================================================
// PUBLISH AND RELOAD
// =============================================================================

func publishedBatches(run planning.RunRecord) (planning.MaterialRequirementBatch, planning.CapacityLoadBatch, planning.RunSummary) {
	mat := planning.MaterialRequirementBatch{
		RunID:      run.ID,
		FacilityID: run.FacilityID,
		AsOf:       run.AsOf,
		Requirements: []planning.MaterialRequirement{
			{
				ItemID: "CHAIR", Bucket: run.AsOf.AddDays(3),
				Gross: dec("10"), InventoryApplied: dec("3"), ReceiptsApplied: dec("0"),
				Net: dec("7"), OrderQty: dec("7"), ReleaseBucket: run.AsOf.AddDays(1),
				ShortageQty: dec("0"), ShortageCost: dec("0"),
				Priority: planning.PriorityCritical, Status: planning.StatusPlanned, DemandWeight: 2,
			},
			{
				ItemID: "WOOD-PLANK", Bucket: run.AsOf.AddDays(1),
				Gross: dec("15.4"), InventoryApplied: dec("0"), ReceiptsApplied: dec("0"),
				Net: dec("15.4"), OrderQty: dec("50"), ReleaseBucket: run.AsOf.AddDays(-6),
				ShortageQty: dec("50"), ShortageCost: dec("200"),
				Priority: planning.PriorityCritical, Status: planning.StatusShortage, DemandWeight: 2,
			},
		},
		ItemErrors: []planning.ItemError{
			{ItemID: "IO-BOARD", Class: planning.ErrorStructural, Stage: "exploding", Detail: "item participates in a bom cycle"},
		},
		Warnings: []planning.DataWarning{
			{Code: "negative-available", ItemID: "HOUSING", Detail: "on-hand 4 minus reserved 9 is negative; treated as zero"},
		},
	}
	capBatch := planning.CapacityLoadBatch{
		RunID:      run.ID,
		FacilityID: run.FacilityID,
		AsOf:       run.AsOf,
		Loads: []planning.CapacityLoad{
			{
				ResourceID: "smt-line", Bucket: run.AsOf.AddDays(5),
				PlannedLoad: dec("27"), Available: dec("20"), Utilization: dec("1.35"),
				Bottleneck: true, ExcessHours: dec("7"),
			},
		},
		Warnings: []planning.DataWarning{
			{Code: "zero-capacity-loaded", ResourceID: "idle-cell", Bucket: run.AsOf.AddDays(2), Detail: "resource idle-cell has no available capacity but 5 planned hours"},
		},
	}
	sum := planning.RunSummary{
		RunID:              run.ID,
		TotalMaterials:     2,
		ShortageItems:      1,
		CriticalShortages:  1,
		TotalShortageValue: dec("200"),
		AverageLeadTime:    dec("4.5"),
	}
	return mat, capBatch, sum
}

func TestPublishBatchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", planning.RunPublishing)
	require.NoError(t, s.CreateRun(ctx, run))

	run.State = planning.RunComplete
	run.FinishedAt = run.StartedAt.Add(time.Second)
	mat, capBatch, sum := publishedBatches(run)
	require.NoError(t, s.PublishBatch(ctx, run, mat, capBatch, sum))

	gotMat, err := s.MaterialBatch(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, mat, gotMat)

	gotCap, err := s.CapacityBatch(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, capBatch, gotCap)

	gotSum, err := s.Summary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, gotSum)

	gotRun, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, planning.RunComplete, gotRun.State)
}

func TestPublishBatch_UnknownRun(t *testing.T) {
	s := newTestStore(t)
	run := testRun("ghost", planning.RunComplete)
	mat, capBatch, sum := publishedBatches(run)

	err := s.PublishBatch(context.Background(), run, mat, capBatch, sum)
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
}

func TestBatchReads_GatedOnCompleteState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A failed run is pollable but serves no batches.
	run := testRun("run-failed", planning.RunFailed)
	run.Error = "inventory source unavailable"
	require.NoError(t, s.CreateRun(ctx, run))

	_, err := s.MaterialBatch(ctx, run.ID)
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
	_, err = s.CapacityBatch(ctx, run.ID)
	assert.ErrorIs(t, err, planning.ErrRunNotFound)
}

func TestLatestCompleted_Supersedes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testRun("run-1", planning.RunComplete)
	first.FinishedAt = first.StartedAt.Add(time.Minute)
	second := testRun("run-2", planning.RunComplete)
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.FinishedAt = second.StartedAt.Add(time.Minute)
	stillRunning := testRun("run-3", planning.RunNetting)
	stillRunning.StartedAt = second.StartedAt.Add(time.Hour)

	for _, r := range []planning.RunRecord{first, second, stillRunning} {
		require.NoError(t, s.CreateRun(ctx, r))
	}

	current, err := s.LatestCompleted(ctx, "plant-1")
	require.NoError(t, err)
	assert.Equal(t, planning.RunID("run-2"), current.ID)
}

// =============================================================================
// END TO END - Orchestrator publishing into SQLite
// =============================================================================

func TestOrchestratorPublishesIntoSQLite(t *testing.T) {
	s := newTestStore(t)
	sc, err := factory.ByName("furniture-plant")
	require.NoError(t, err)
	cfg := planning.Config{Facility: "plant-1", Parallelism: 4}
	orch := planning.NewOrchestrator(cfg, sc.Catalog, sc.Demand, sc.Inventory, s, nil)

	result, err := orch.Run(context.Background(), sc.AsOf)
	require.NoError(t, err)
	require.Equal(t, planning.RunComplete, result.Run.State)

	reloaded, err := s.MaterialBatch(context.Background(), result.Run.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Requirements, len(result.Material.Requirements))

	// Rows come back in the same canonical order; decimals must compare
	// equal by value after the text round trip.
	for i, want := range result.Material.Requirements {
		got := reloaded.Requirements[i]
		assert.Equal(t, want.ItemID, got.ItemID)
		assert.True(t, want.Bucket.Equal(got.Bucket))
		assert.True(t, want.Gross.Equal(got.Gross), "item %s gross %s != %s", want.ItemID, want.Gross, got.Gross)
		assert.True(t, want.Net.Equal(got.Net))
		assert.True(t, want.OrderQty.Equal(got.OrderQty))
		assert.True(t, want.ShortageQty.Equal(got.ShortageQty))
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Priority, got.Priority)
	}

	reloadedCap, err := s.CapacityBatch(context.Background(), result.Run.ID)
	require.NoError(t, err)
	require.Len(t, reloadedCap.Loads, len(result.Capacity.Loads))
	for i, want := range result.Capacity.Loads {
		got := reloadedCap.Loads[i]
		assert.Equal(t, want.ResourceID, got.ResourceID)
		assert.True(t, want.Utilization.Equal(got.Utilization))
		assert.Equal(t, want.Bottleneck, got.Bottleneck)
	}

	sum, err := s.Summary(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Summary.TotalMaterials, sum.TotalMaterials)
	assert.True(t, result.Summary.TotalShortageValue.Equal(sum.TotalShortageValue))
}

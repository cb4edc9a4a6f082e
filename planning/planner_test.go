package planning

import (
	"context"
	"reflect"
	"testing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func planSnapshot(items []Item, lines []BOMLine, demand []DemandLine, positions []InventoryPosition) *Snapshot {
	s := &Snapshot{Items: items, BOMLines: lines, Demand: demand, Positions: positions}
	s.normalize()
	return s
}

func makeItem(id string, leadDays int) Item {
	it := lflItem(id, leadDays)
	it.MakeOrBuy = Make
	return it
}

func demandFor(item string, bucket Bucket, qty string, weight int) DemandLine {
	return DemandLine{
		Source:       DemandSalesOrder,
		Reference:    "so-" + item,
		ItemID:       ItemID(item),
		Quantity:     dec(qty),
		RequiredDate: bucket,
		Weight:       weight,
	}
}

func runPass(t *testing.T, snap *Snapshot, asOf Bucket) planOutcome {
	t.Helper()
	out, err := newMRPPass(snap).run(context.Background(), asOf, 4)
	if err != nil {
		t.Fatalf("mrp pass failed: %v", err)
	}
	return out
}

func requirementsFor(out planOutcome, item ItemID) []MaterialRequirement {
	var reqs []MaterialRequirement
	for _, r := range out.Requirements {
		if r.ItemID == item {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// =============================================================================
// EXPLOSION
// =============================================================================

func TestMRPPass_ExplosionAppliesQtyPerAndScrap(t *testing.T) {
	// GIVEN: a release of 10 parents, 2 children per parent, 10% scrap
	scrapLine := line("PARENT", "CHILD", "2")
	scrapLine.ScrapFactor = dec("0.10")
	snap := planSnapshot(
		[]Item{makeItem("PARENT", 0), lflItem("CHILD", 0)},
		[]BOMLine{scrapLine},
		[]DemandLine{demandFor("PARENT", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	childReqs := requirementsFor(out, "CHILD")
	if len(childReqs) != 1 {
		t.Fatalf("got %d child requirements, want 1", len(childReqs))
	}
	// 10 x 2 x 1.10 = 22
	if !childReqs[0].Gross.Equal(dec("22")) {
		t.Errorf("child gross = %s, want 22", childReqs[0].Gross)
	}
}

func TestMRPPass_ChildDemandLandsAtParentRelease(t *testing.T) {
	// GIVEN: a parent with a 3-day lead time and demand 5 days out
	snap := planSnapshot(
		[]Item{makeItem("PARENT", 3), lflItem("CHILD", 0)},
		[]BOMLine{line("PARENT", "CHILD", "1")},
		[]DemandLine{demandFor("PARENT", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	childReqs := requirementsFor(out, "CHILD")
	if len(childReqs) != 1 {
		t.Fatalf("got %d child requirements, want 1", len(childReqs))
	}
	// Components must be on hand when parent work starts.
	if !childReqs[0].Bucket.Equal(day(2)) {
		t.Errorf("child bucket = %s, want %s", childReqs[0].Bucket, day(2))
	}
}

func TestMRPPass_SharedComponentAggregatesAcrossParents(t *testing.T) {
	// GIVEN: two parents at level 0 both consuming BOLT for the same day
	snap := planSnapshot(
		[]Item{makeItem("DESK", 0), makeItem("SHELF", 0), lflItem("BOLT", 0)},
		[]BOMLine{line("DESK", "BOLT", "4"), line("SHELF", "BOLT", "2")},
		[]DemandLine{
			demandFor("DESK", day(5), "10", 1),
			demandFor("SHELF", day(5), "5", 1),
		},
		nil,
	)

	out := runPass(t, snap, day(0))

	boltReqs := requirementsFor(out, "BOLT")
	if len(boltReqs) != 1 {
		t.Fatalf("got %d BOLT requirements, want a single aggregated line", len(boltReqs))
	}
	// 10x4 + 5x2 = 50, complete before BOLT was netted.
	if !boltReqs[0].Gross.Equal(dec("50")) {
		t.Errorf("BOLT gross = %s, want 50", boltReqs[0].Gross)
	}
}

func TestMRPPass_ThreeLevelChain(t *testing.T) {
	snap := planSnapshot(
		[]Item{makeItem("A", 1), makeItem("B", 1), lflItem("C", 0)},
		[]BOMLine{line("A", "B", "1"), line("B", "C", "3")},
		[]DemandLine{demandFor("A", day(10), "4", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	cReqs := requirementsFor(out, "C")
	if len(cReqs) != 1 {
		t.Fatalf("got %d C requirements, want 1", len(cReqs))
	}
	// A releases at day 9, B at day 8, so C is needed on day 8.
	if !cReqs[0].Bucket.Equal(day(8)) {
		t.Errorf("C bucket = %s, want %s", cReqs[0].Bucket, day(8))
	}
	if !cReqs[0].Gross.Equal(dec("12")) {
		t.Errorf("C gross = %s, want 12", cReqs[0].Gross)
	}
}

// =============================================================================
// ERROR SCOPING
// =============================================================================

func TestMRPPass_CycleIsolatedFromHealthyBranches(t *testing.T) {
	// GIVEN: A <-> B cyclic, demanded; D -> E healthy, demanded
	snap := planSnapshot(
		[]Item{makeItem("A", 0), makeItem("B", 0), makeItem("D", 0), lflItem("E", 0)},
		[]BOMLine{line("A", "B", "1"), line("B", "A", "1"), line("D", "E", "1")},
		[]DemandLine{demandFor("A", day(5), "10", 1), demandFor("D", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	// The healthy chain planned normally.
	if len(requirementsFor(out, "D")) != 1 || len(requirementsFor(out, "E")) != 1 {
		t.Error("healthy branch was not planned")
	}
	// Nothing was planned inside the cycle.
	if len(requirementsFor(out, "A")) != 0 || len(requirementsFor(out, "B")) != 0 {
		t.Error("cycle members produced requirements")
	}
	var structural int
	for _, e := range out.ItemErrors {
		if e.Class == ErrorStructural {
			structural++
		}
	}
	if structural != 2 {
		t.Errorf("got %d structural errors, want 2 (one per cycle member)", structural)
	}
}

func TestMRPPass_ConfigErrorBlocksDescendants(t *testing.T) {
	// GIVEN: a parent with a negative lead time above a healthy child
	bad := makeItem("BROKEN", -2)
	snap := planSnapshot(
		[]Item{bad, lflItem("CHILD", 0)},
		[]BOMLine{line("BROKEN", "CHILD", "1")},
		[]DemandLine{demandFor("BROKEN", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	if len(out.Requirements) != 0 {
		t.Errorf("got %d requirements from a failed chain, want 0", len(out.Requirements))
	}
	classes := make(map[ItemID]ErrorClass)
	for _, e := range out.ItemErrors {
		classes[e.ItemID] = e.Class
	}
	if classes["BROKEN"] != ErrorConfiguration {
		t.Errorf("BROKEN class = %s, want %s", classes["BROKEN"], ErrorConfiguration)
	}
	if classes["CHILD"] != ErrorBlocked {
		t.Errorf("CHILD class = %s, want %s", classes["CHILD"], ErrorBlocked)
	}
}

func TestMRPPass_UnknownDemandedItemFails(t *testing.T) {
	snap := planSnapshot(
		[]Item{makeItem("KNOWN", 0)},
		[]BOMLine{line("GHOST", "KNOWN", "1")},
		[]DemandLine{demandFor("GHOST", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	if len(requirementsFor(out, "GHOST")) != 0 {
		t.Error("item missing from the catalog produced requirements")
	}
	var sawConfig, sawBlocked bool
	for _, e := range out.ItemErrors {
		if e.ItemID == "GHOST" && e.Class == ErrorConfiguration {
			sawConfig = true
		}
		if e.ItemID == "KNOWN" && e.Class == ErrorBlocked {
			sawBlocked = true
		}
	}
	if !sawConfig {
		t.Error("missing catalog item not recorded as a configuration error")
	}
	if !sawBlocked {
		t.Error("descendant of the failed item not recorded as blocked")
	}
}

func TestMRPPass_MakeItemWithoutBOMStillPlanned(t *testing.T) {
	snap := planSnapshot(
		[]Item{makeItem("LONELY", 0)},
		nil,
		[]DemandLine{demandFor("LONELY", day(5), "10", 1)},
		nil,
	)

	out := runPass(t, snap, day(0))

	if len(requirementsFor(out, "LONELY")) != 1 {
		t.Fatal("make item without a BOM was not planned")
	}
	var sawMissing bool
	for _, e := range out.ItemErrors {
		if e.ItemID == "LONELY" && e.Cause == ErrMissingBOM {
			sawMissing = true
		}
	}
	if !sawMissing {
		t.Error("missing BOM not recorded as a structural error")
	}
}

// =============================================================================
// CANCELLATION AND DETERMINISM
// =============================================================================

func TestMRPPass_CancelledContext(t *testing.T) {
	snap := planSnapshot(
		[]Item{lflItem("A", 0)},
		nil,
		[]DemandLine{demandFor("A", day(5), "10", 1)},
		nil,
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMRPPass(snap).run(ctx, day(0), 4)
	if err != ErrRunCancelled {
		t.Errorf("err = %v, want %v", err, ErrRunCancelled)
	}
}

func TestMRPPass_DeterministicAcrossRepeats(t *testing.T) {
	// GIVEN: a wide level so the concurrent netting actually interleaves
	var items []Item
	var lines []BOMLine
	var demand []DemandLine
	parents := []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}
	for _, p := range parents {
		items = append(items, makeItem(p, 1))
		lines = append(lines, line(p, "SHARED", "2"))
		demand = append(demand, demandFor(p, day(6), "10", 1))
	}
	items = append(items, lflItem("SHARED", 0))
	snap := planSnapshot(items, lines, demand, nil)

	first := runPass(t, snap, day(0))
	for i := 0; i < 10; i++ {
		again := runPass(t, planSnapshot(items, lines, demand, nil), day(0))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed from the first run", i)
		}
	}

	shared := requirementsFor(first, "SHARED")
	if len(shared) != 1 || !shared[0].Gross.Equal(dec("160")) {
		t.Errorf("SHARED requirements = %v, want one line of gross 160", shared)
	}
}

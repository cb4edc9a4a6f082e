/*
planner.go - Level-by-level MRP pass (explosion + netting)

PURPOSE:
  Drives the material side of a run. Levels from the BOM graph act as
  barriers: every item at low-level code N is fully netted before any item
  at code N+1 is touched, so a child's gross requirement is complete across
  all of its parents before it is planned. Items WITHIN a level are
  independent and are netted concurrently (errgroup with a bounded limit);
  their releases are merged back into the shared gross profile one item at
  a time in sorted order, which keeps the outcome deterministic regardless
  of goroutine scheduling.

EXPLOSION:
  A parent release of quantity Q at bucket T contributes
  Q x qty-per x (1 + scrap) to each effective child at bucket T. The
  release bucket is the parent's start-of-work date, which is exactly when
  components must be on hand.

ERROR SCOPING:
  - Cycle members never enter a level; their sub-trees get structural
    errors and their orphaned descendants get blocked errors
  - A configuration error on an item blocks every descendant
  - Blocked and failed items emit no requirements

CANCELLATION:
  Checked between levels only. A cancelled pass returns ErrRunCancelled
  and the orchestrator discards the whole batch.
*/
package planning

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// planOutcome is the material result of the explosion + netting stages.
type planOutcome struct {
	Requirements []MaterialRequirement
	ItemErrors   []ItemError
	Warnings     []DataWarning
}

// mrpPass carries the structural analysis from the exploding stage into the
// level-by-level netting stage.
type mrpPass struct {
	snap     *Snapshot
	graph    *BOMGraph
	gross    *GrossProfile
	demanded []ItemID
	out      planOutcome
}

// newMRPPass runs the exploding-stage analysis: graph construction, cycle
// detection, low-level codes and top-level demand collection.
func newMRPPass(snap *Snapshot) *mrpPass {
	p := &mrpPass{
		snap:  snap,
		graph: NewBOMGraph(snap.BOMLines),
	}
	var warnings []DataWarning
	p.gross, warnings = CollectDemand(snap)
	p.out.Warnings = append(p.out.Warnings, warnings...)
	p.demanded = p.gross.Items()
	p.out.ItemErrors = append(p.out.ItemErrors, p.graph.structuralErrors(p.demanded)...)
	return p
}

// run executes the netting stage: level-barriered netting and downward
// explosion of planned order releases.
func (p *mrpPass) run(ctx context.Context, asOf Bucket, parallelism int) (planOutcome, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	snap := p.snap
	graph := p.graph
	gross := p.gross
	out := p.out

	woReceipts := workOrderReceipts(snap)

	// Items blocked by an ancestor's configuration failure.
	blockedBy := make(map[ItemID]ItemID)
	failed := make(map[ItemID]bool)

	fail := func(e ItemError) {
		out.ItemErrors = append(out.ItemErrors, e)
		failed[e.ItemID] = true
		for _, desc := range graph.DescendantsOf(e.ItemID) {
			if _, already := blockedBy[desc]; !already {
				blockedBy[desc] = e.ItemID
			}
		}
	}

	// Demand for an item missing from the catalog never enters the gross
	// profile (CollectDemand drops it with a warning), so it would never
	// reach a level. Fail it up front: the item gets a configuration error
	// and its BOM descendants are reported blocked instead of silently
	// absent.
	for _, d := range snap.Demand {
		if _, known := snap.ItemByID[d.ItemID]; known || failed[d.ItemID] {
			continue
		}
		fail(ItemError{
			ItemID: d.ItemID,
			Class:  ErrorConfiguration,
			Stage:  "exploding",
			Detail: "item is not in the catalog snapshot",
		})
	}

	for _, level := range graph.Levels(p.demanded) {
		if err := ctx.Err(); err != nil {
			return planOutcome{}, ErrRunCancelled
		}

		// Select the items of this level that actually carry demand and
		// resolve their per-item failures before the parallel pass.
		var plannable []ItemID
		for _, id := range level {
			if !gross.Has(id) {
				continue
			}
			if parent, blocked := blockedBy[id]; blocked {
				out.ItemErrors = append(out.ItemErrors, ItemError{
					ItemID: id,
					Class:  ErrorBlocked,
					Stage:  "netting",
					Detail: "skipped: ancestor " + string(parent) + " failed",
				})
				failed[id] = true
				continue
			}
			item, known := snap.ItemByID[id]
			if !known {
				fail(ItemError{
					ItemID: id,
					Class:  ErrorConfiguration,
					Stage:  "netting",
					Detail: "item is not in the catalog snapshot",
				})
				continue
			}
			if cfgErr := validateItemConfig(item); cfgErr != nil {
				fail(*cfgErr)
				continue
			}
			if item.MakeOrBuy == Make && !graph.HasBOM(id) {
				// Recorded but still planned: the net requirement is real
				// even while the product structure is incomplete.
				out.ItemErrors = append(out.ItemErrors, ItemError{
					ItemID: id,
					Class:  ErrorStructural,
					Stage:  "exploding",
					Detail: "make item has no bill of materials",
					Cause:  ErrMissingBOM,
				})
			}
			plannable = append(plannable, id)
		}

		// Net the level's items concurrently; each writes only its own slot.
		plans := make([]itemPlan, len(plannable))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelism)
		for i, id := range plannable {
			i, id := i, id
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				item := snap.ItemByID[id]
				plans[i] = netItem(item, gross, snap.PositionByID[id], woReceipts[id], asOf)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return planOutcome{}, ErrRunCancelled
		}

		// Merge sequentially, in sorted item order: append output and feed
		// each release into the children's gross requirements.
		one := decimal.NewFromInt(1)
		for i, id := range plannable {
			plan := plans[i]
			out.Requirements = append(out.Requirements, plan.Requirements...)
			out.Warnings = append(out.Warnings, plan.Warnings...)
			for _, rel := range plan.Releases {
				for _, line := range graph.Children(id, rel.Bucket) {
					childQty := rel.Quantity.Mul(line.QtyPer).Mul(one.Add(line.ScrapFactor))
					gross.Add(line.ChildID, rel.Bucket, childQty, rel.Weight)
				}
			}
		}
	}

	planned := make(map[ItemID]bool)
	for _, r := range out.Requirements {
		planned[r.ItemID] = true
	}

	// Descendants of a failed ancestor that never saw demand: their gross
	// requirement would have come from the failed chain, so report them
	// blocked rather than silently absent.
	for desc, parent := range blockedBy {
		if planned[desc] || failed[desc] {
			continue
		}
		failed[desc] = true
		out.ItemErrors = append(out.ItemErrors, ItemError{
			ItemID: desc,
			Class:  ErrorBlocked,
			Stage:  "netting",
			Detail: "skipped: ancestor " + string(parent) + " failed",
		})
	}

	// Descendants stranded under a cycle: demanded but never planned.
	for _, member := range graph.CycleMembers() {
		for _, desc := range graph.DescendantsOf(member) {
			if graph.InCycle(desc) || planned[desc] || failed[desc] {
				continue
			}
			failed[desc] = true
			out.ItemErrors = append(out.ItemErrors, ItemError{
				ItemID: desc,
				Class:  ErrorBlocked,
				Stage:  "exploding",
				Detail: "skipped: bom cycle above " + string(desc),
				Cause:  ErrBOMCycle,
			})
		}
	}

	sortOutcome(&out)
	return out, nil
}

// sortOutcome puts every output slice into canonical order.
func sortOutcome(out *planOutcome) {
	sort.Slice(out.Requirements, func(i, j int) bool {
		a, b := out.Requirements[i], out.Requirements[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Bucket.Before(b.Bucket)
	})
	sort.Slice(out.ItemErrors, func(i, j int) bool {
		a, b := out.ItemErrors[i], out.ItemErrors[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Detail < b.Detail
	})
	sort.Slice(out.Warnings, func(i, j int) bool {
		a, b := out.Warnings[i], out.Warnings[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		return a.Code < b.Code
	})
}

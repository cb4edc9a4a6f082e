/*
demand.go - Gross requirement collection

PURPOSE:
  Aggregates the snapshot's demand into gross requirements per item per
  bucket. Two demand streams feed the profile:

  1. Independent demand: sales order and forecast lines, taken at face
     value on their required date.
  2. Dependent demand from open work orders: a work order for a parent
     consumes the parent's components at the order's start bucket
     (qty x qty-per x (1 + scrap) per effective BOM line).

  The work orders themselves are SUPPLY of their own item, not demand for
  it; they enter netting as scheduled receipts at their end bucket and
  enter CRP as resource load (capacity.go).

PRIORITY WEIGHTS:
  Each gross cell keeps the highest business priority (1..4) among the
  demand feeding it, so the shortage classifier can honor weight-4 demand.

SEE ALSO:
  - planner.go: adds exploded dependent demand level by level
  - capacity.go: the load-side view of the same work orders
*/
package planning

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GROSS PROFILE - Requirements per item per bucket
// =============================================================================

// GrossEntry is one item/bucket cell of the gross requirement profile.
type GrossEntry struct {
	Quantity decimal.Decimal
	Weight   int // highest priority weight among contributing demand
}

// GrossProfile accumulates gross requirements. It is a build-time structure;
// iteration must always go through sorted accessors for determinism.
type GrossProfile struct {
	cells map[ItemID]map[Bucket]GrossEntry
}

// NewGrossProfile returns an empty profile.
func NewGrossProfile() *GrossProfile {
	return &GrossProfile{cells: make(map[ItemID]map[Bucket]GrossEntry)}
}

// Add accumulates quantity into the item/bucket cell and keeps the maximum
// priority weight seen.
func (g *GrossProfile) Add(item ItemID, bucket Bucket, qty decimal.Decimal, weight int) {
	if qty.IsZero() {
		return
	}
	buckets, ok := g.cells[item]
	if !ok {
		buckets = make(map[Bucket]GrossEntry)
		g.cells[item] = buckets
	}
	entry := buckets[bucket]
	entry.Quantity = entry.Quantity.Add(qty)
	if weight > entry.Weight {
		entry.Weight = weight
	}
	buckets[bucket] = entry
}

// Items returns the item ids with any gross requirement, sorted.
func (g *GrossProfile) Items() []ItemID {
	ids := make([]ItemID, 0, len(g.cells))
	for id := range g.cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Buckets returns the item's requirement buckets in ascending date order.
func (g *GrossProfile) Buckets(item ItemID) []Bucket {
	cells := g.cells[item]
	buckets := make([]Bucket, 0, len(cells))
	for b := range cells {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })
	return buckets
}

// Entry returns the cell for an item/bucket (zero entry when absent).
func (g *GrossProfile) Entry(item ItemID, bucket Bucket) GrossEntry {
	return g.cells[item][bucket]
}

// Has reports whether the item carries any gross requirement.
func (g *GrossProfile) Has(item ItemID) bool {
	return len(g.cells[item]) > 0
}

// =============================================================================
// DEMAND COLLECTOR
// =============================================================================

// CollectDemand builds the top-level gross profile from a snapshot.
// Demand lines for unknown items are dropped with a warning rather than
// failing the run: the line cannot be planned but everything else can.
func CollectDemand(snap *Snapshot) (*GrossProfile, []DataWarning) {
	profile := NewGrossProfile()
	var warnings []DataWarning

	for _, d := range snap.Demand {
		if _, ok := snap.ItemByID[d.ItemID]; !ok {
			warnings = append(warnings, DataWarning{
				Code:   "unknown-demand-item",
				ItemID: d.ItemID,
				Bucket: d.RequiredDate,
				Detail: "demand line " + d.Reference + " references an item not in the catalog",
			})
			continue
		}
		profile.Add(d.ItemID, d.RequiredDate, d.Quantity, d.Weight)
	}

	// Open work orders pull their parent's components at order start.
	for _, wo := range snap.WorkOrders {
		for _, line := range snap.BOMLines {
			if line.ParentID != wo.ItemID || !line.EffectiveOn(wo.Start) {
				continue
			}
			qty := wo.Quantity.Mul(line.QtyPer).Mul(decimal.NewFromInt(1).Add(line.ScrapFactor))
			profile.Add(line.ChildID, wo.Start, qty, wo.Weight)
		}
	}

	return profile, warnings
}

// workOrderReceipts returns the supply side of open work orders: each order
// delivers its quantity at its end bucket. Merged into netting alongside
// purchase receipts.
func workOrderReceipts(snap *Snapshot) map[ItemID][]ScheduledReceipt {
	out := make(map[ItemID][]ScheduledReceipt)
	for _, wo := range snap.WorkOrders {
		out[wo.ItemID] = append(out[wo.ItemID], ScheduledReceipt{
			Quantity: wo.Quantity,
			Expected: wo.End,
		})
	}
	return out
}

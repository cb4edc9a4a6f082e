/*
capacity.go - Capacity load aggregation and finite-capacity evaluation (CRP)

PURPOSE:
  Converts open work orders into resource-hour load per bucket and compares
  that load to derated capacity, flagging bottlenecks.

LOAD AGGREGATION:
  A work order for item I loads every resource in I's routing with
  quantity x standard-hours-per-unit. When the order's scheduled window
  spans several day buckets, the hours are pro-rated across the buckets by
  elapsed-time fraction (a 3-day order places one third of its hours in
  each day).

EVALUATION:
  utilization = planned load / (capacity x efficiency). Utilization above
  1.0 is a valid, flaggable state, not an error. A resource is a bottleneck
  in a bucket when:
    - utilization >= 1.0 (hard overcommitment), or
    - it has the bucket's maximum utilization AND that exceeds the soft
      threshold (default 0.85)
  The evaluator only flags; excess hours are emitted for a downstream
  leveling step or a human to act on. It never reschedules.
*/
package planning

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultBottleneckThreshold is the soft utilization level above which the
// most loaded resource of a bucket is flagged even without overcommitment.
var DefaultBottleneckThreshold = decimal.NewFromFloat(0.85)

// =============================================================================
// LOAD AGGREGATION
// =============================================================================

type resourceBucket struct {
	Resource ResourceID
	Bucket   Bucket
}

// AggregateLoad builds planned load per resource per bucket from the
// snapshot's open work orders and routings.
func AggregateLoad(snap *Snapshot) map[resourceBucket]decimal.Decimal {
	load := make(map[resourceBucket]decimal.Decimal)

	for _, wo := range snap.WorkOrders {
		routings := snap.RoutingsByItem[wo.ItemID]
		if len(routings) == 0 {
			continue
		}
		buckets := spanBuckets(wo.Start, wo.End)
		span := decimal.NewFromInt(int64(len(buckets)))

		for _, rt := range routings {
			hours := wo.Quantity.Mul(rt.HoursPerUnit)
			// Divide the total by the span instead of multiplying by a
			// precomputed 1/span share: the share is already rounded to
			// decimal's division precision and 30h over 3 days would come
			// out as 9.999999999999999 per day.
			perBucket := hours.Div(span)
			for _, b := range buckets {
				key := resourceBucket{Resource: rt.ResourceID, Bucket: b}
				load[key] = load[key].Add(perBucket)
			}
		}
	}
	return load
}

// spanBuckets lists the day buckets a scheduled window covers, inclusive.
// A window that ends before it starts is treated as a single-day window at
// its start.
func spanBuckets(start, end Bucket) []Bucket {
	if end.Before(start) {
		return []Bucket{start}
	}
	days := start.DaysUntil(end)
	out := make([]Bucket, 0, days+1)
	for i := 0; i <= days; i++ {
		out = append(out, start.AddDays(i))
	}
	return out
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateCapacity compares aggregated load to derated capacity and flags
// bottlenecks. softThreshold zero or negative falls back to the default.
func EvaluateCapacity(snap *Snapshot, softThreshold decimal.Decimal) ([]CapacityLoad, []DataWarning) {
	if !softThreshold.IsPositive() {
		softThreshold = DefaultBottleneckThreshold
	}

	rawLoad := AggregateLoad(snap)

	keys := make([]resourceBucket, 0, len(rawLoad))
	for k := range rawLoad {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Bucket.Equal(keys[j].Bucket) {
			return keys[i].Bucket.Before(keys[j].Bucket)
		}
		return keys[i].Resource < keys[j].Resource
	})

	var loads []CapacityLoad
	var warnings []DataWarning

	for _, k := range keys {
		res, known := snap.ResourceByID[k.Resource]
		planned := rawLoad[k]
		if !known {
			warnings = append(warnings, DataWarning{
				Code:       "unknown-resource-loaded",
				ResourceID: k.Resource,
				Bucket:     k.Bucket,
				Detail:     fmt.Sprintf("routing loads resource %s which is not in the catalog", k.Resource),
			})
			continue
		}

		available := res.CapacityPerDay.Mul(res.EfficiencyFactor)
		cl := CapacityLoad{
			ResourceID:  k.Resource,
			Bucket:      k.Bucket,
			PlannedLoad: planned,
			Available:   available,
		}

		if available.IsPositive() {
			cl.Utilization = planned.Div(available).Round(4)
		} else if planned.IsPositive() {
			warnings = append(warnings, DataWarning{
				Code:       "zero-capacity-loaded",
				ResourceID: k.Resource,
				Bucket:     k.Bucket,
				Detail:     fmt.Sprintf("resource %s has no available capacity but %s planned hours", k.Resource, planned),
			})
			cl.Bottleneck = true
			cl.ExcessHours = planned
		}

		if excess := planned.Sub(available); excess.IsPositive() {
			cl.ExcessHours = excess
		}
		if cl.Utilization.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			cl.Bottleneck = true
		}
		loads = append(loads, cl)
	}

	flagRelativeBottlenecks(loads, softThreshold)
	return loads, warnings
}

// flagRelativeBottlenecks marks the most utilized resource of each bucket
// when it clears the soft threshold, even if it is under full capacity.
func flagRelativeBottlenecks(loads []CapacityLoad, softThreshold decimal.Decimal) {
	maxIdx := make(map[Bucket]int)
	for i, cl := range loads {
		j, ok := maxIdx[cl.Bucket]
		if !ok || cl.Utilization.GreaterThan(loads[j].Utilization) {
			maxIdx[cl.Bucket] = i
		}
	}
	for _, i := range maxIdx {
		if loads[i].Utilization.GreaterThan(softThreshold) {
			loads[i].Bottleneck = true
		}
	}
}

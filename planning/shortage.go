/*
shortage.go - Shortage classification and ranking

PURPOSE:
  Assigns a priority class to every requirement line and orders the
  shortage report the way the dashboards consume it.

CLASSIFICATION RULES (first match wins, evaluated against the run's as-of
date and the item's own lead time):
  critical: required date within the item's lead time (no time left to
            react), or the demand carries business priority weight 4
  high:     shortage and days-until-required <= 2x lead time
  medium:   shortage and days-until-required <= 4x lead time
  low:      everything else

ORDERING:
  Shortages sort by class severity, then earliest required date, then
  highest shortage cost. Lines without a shortage keep their class for
  display but are not part of the shortage report.
*/
package planning

import (
	"sort"
)

var classRank = map[PriorityClass]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// classify assigns the priority class for one requirement line.
func classify(req MaterialRequirement, item Item, asOf Bucket) PriorityClass {
	daysUntil := asOf.DaysUntil(req.Bucket)
	lead := item.LeadTimeDays

	if daysUntil <= lead || req.DemandWeight >= 4 {
		return PriorityCritical
	}
	if req.ShortageQty.IsPositive() && daysUntil <= 2*lead {
		return PriorityHigh
	}
	if req.ShortageQty.IsPositive() && daysUntil <= 4*lead {
		return PriorityMedium
	}
	return PriorityLow
}

// ClassifyShortages stamps a priority class onto every requirement in place
// and returns the shortage lines in report order.
func ClassifyShortages(reqs []MaterialRequirement, items map[ItemID]Item, asOf Bucket) []MaterialRequirement {
	var shortages []MaterialRequirement
	for i := range reqs {
		reqs[i].Priority = classify(reqs[i], items[reqs[i].ItemID], asOf)
		if reqs[i].ShortageQty.IsPositive() {
			shortages = append(shortages, reqs[i])
		}
	}

	sort.Slice(shortages, func(i, j int) bool {
		a, b := shortages[i], shortages[j]
		if classRank[a.Priority] != classRank[b.Priority] {
			return classRank[a.Priority] < classRank[b.Priority]
		}
		if !a.Bucket.Equal(b.Bucket) {
			return a.Bucket.Before(b.Bucket)
		}
		if !a.ShortageCost.Equal(b.ShortageCost) {
			return a.ShortageCost.GreaterThan(b.ShortageCost)
		}
		return a.ItemID < b.ItemID
	})
	return shortages
}

/*
netting.go - Time-phased net requirements for a single item

PURPOSE:
  Implements MRP proper for one item: walk the item's gross requirement
  buckets in date order, consume available inventory and scheduled
  receipts, lot-size what remains, and backward-schedule the planned order
  release by lead time.

NETTING RULES:
  - Opening available = on-hand - reserved - safety stock, floored at zero
    (a negative raw position is a data-quality warning, not an error)
  - Inventory surplus carries forward to later buckets
  - Scheduled receipts are consumed earliest-expected-first, and only
    receipts expected on or before a bucket can serve it
  - Lot-sizing excess (order quantity beyond net) also carries forward

TIME PHASING:
  Release bucket = required bucket - lead time, in calendar days. When the
  release bucket falls before the run's as-of date the order cannot be
  placed in time: the line becomes a shortage for the full lot-sized
  quantity. The release is still computed so component demand stays
  consistent; downstream levels will surface their own shortages.

FAILURE SEMANTICS:
  A negative lead time or unknown lot policy is a configuration error for
  the item. Nothing is silently defaulted; the item's chain fails and its
  descendants are reported as blocked by the planner.

SEE ALSO:
  - planner.go: feeds each release back into the next BOM level
  - shortage.go: classifies the shortage lines produced here
*/
package planning

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Release is one planned order release: quantity due to be ordered or
// started at a bucket. Releases drive the next explosion level.
type Release struct {
	Bucket   Bucket
	Quantity decimal.Decimal
	Weight   int
}

// itemPlan is the outcome of netting one item.
type itemPlan struct {
	Requirements []MaterialRequirement
	Releases     []Release
	Warnings     []DataWarning
}

// =============================================================================
// CONFIG VALIDATION
// =============================================================================

// validateItemConfig rejects items that cannot be lot-sized or scheduled.
func validateItemConfig(item Item) *ItemError {
	if item.LeadTimeDays < 0 {
		return &ItemError{
			ItemID: item.ID,
			Class:  ErrorConfiguration,
			Stage:  "netting",
			Detail: fmt.Sprintf("lead time %d is negative", item.LeadTimeDays),
			Cause:  ErrMissingLeadTime,
		}
	}
	switch item.LotPolicy {
	case LotForLot:
	case FixedOrderQty, MinOrderQty:
		if !item.LotSize.IsPositive() {
			return &ItemError{
				ItemID: item.ID,
				Class:  ErrorConfiguration,
				Stage:  "netting",
				Detail: fmt.Sprintf("policy %s requires a positive lot size, got %s", item.LotPolicy, item.LotSize),
				Cause:  ErrInvalidLotPolicy,
			}
		}
	default:
		return &ItemError{
			ItemID: item.ID,
			Class:  ErrorConfiguration,
			Stage:  "netting",
			Detail: fmt.Sprintf("unknown lot policy %q", item.LotPolicy),
			Cause:  ErrInvalidLotPolicy,
		}
	}
	return nil
}

// =============================================================================
// LOT SIZING
// =============================================================================

// lotSize converts a positive net requirement into an order quantity.
// Config is validated before netting, so the default arm is unreachable.
func lotSize(item Item, net decimal.Decimal) decimal.Decimal {
	switch item.LotPolicy {
	case FixedOrderQty:
		// Round up to the nearest multiple of the lot size.
		lots := net.Div(item.LotSize).Ceil()
		return lots.Mul(item.LotSize)
	case MinOrderQty:
		if net.LessThan(item.LotSize) {
			return item.LotSize
		}
		return net
	default: // LotForLot
		return net
	}
}

// =============================================================================
// NETTING
// =============================================================================

// netItem plans one item. Called only after validateItemConfig passed.
// The gross profile, position and receipts are read-only; extraReceipts
// carries work-order supply merged with purchase receipts by the planner.
func netItem(item Item, gross *GrossProfile, pos InventoryPosition, extraReceipts []ScheduledReceipt, asOf Bucket) itemPlan {
	var plan itemPlan

	raw := pos.Available()
	if raw.IsNegative() {
		plan.Warnings = append(plan.Warnings, DataWarning{
			Code:   "negative-available",
			ItemID: item.ID,
			Detail: fmt.Sprintf("on-hand %s minus reserved %s is negative; treated as zero", pos.OnHand, pos.Reserved),
		})
		raw = decimal.Zero
	}
	// Safety stock is held back from netting, never consumed by plan.
	available := raw.Sub(item.SafetyStock)
	if available.IsNegative() {
		available = decimal.Zero
	}

	receipts := mergeReceipts(pos.ScheduledReceipts, extraReceipts)
	nextReceipt := 0
	receiptPool := decimal.Zero

	for _, bucket := range gross.Buckets(item.ID) {
		entry := gross.Entry(item.ID, bucket)

		// Pull in receipts expected on or before this bucket, earliest first.
		for nextReceipt < len(receipts) && receipts[nextReceipt].Expected.BeforeOrEqual(bucket) {
			receiptPool = receiptPool.Add(receipts[nextReceipt].Quantity)
			nextReceipt++
		}

		remaining := entry.Quantity
		invApplied := decimal.Min(available, remaining)
		available = available.Sub(invApplied)
		remaining = remaining.Sub(invApplied)

		rcptApplied := decimal.Min(receiptPool, remaining)
		receiptPool = receiptPool.Sub(rcptApplied)
		remaining = remaining.Sub(rcptApplied)

		req := MaterialRequirement{
			ItemID:           item.ID,
			Bucket:           bucket,
			Gross:            entry.Quantity,
			InventoryApplied: invApplied,
			ReceiptsApplied:  rcptApplied,
			Net:              remaining,
			DemandWeight:     entry.Weight,
			Status:           StatusPlanned,
		}

		if remaining.IsPositive() {
			order := lotSize(item, remaining)
			release := bucket.AddDays(-item.LeadTimeDays)
			req.OrderQty = order
			req.ReleaseBucket = release

			if release.Before(asOf) {
				// Cannot be ordered in time.
				req.Status = StatusShortage
				req.ShortageQty = order
				req.ShortageCost = order.Mul(item.UnitCost)
			}

			// Lot-sizing excess becomes projected inventory.
			available = available.Add(order.Sub(remaining))

			plan.Releases = append(plan.Releases, Release{
				Bucket:   release,
				Quantity: order,
				Weight:   entry.Weight,
			})
		}

		plan.Requirements = append(plan.Requirements, req)
	}

	return plan
}

// mergeReceipts combines purchase receipts and work-order supply into one
// earliest-first sequence without mutating either input.
func mergeReceipts(a, b []ScheduledReceipt) []ScheduledReceipt {
	out := make([]ScheduledReceipt, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sortReceipts(out)
	return out
}

func sortReceipts(rcpts []ScheduledReceipt) {
	for i := 1; i < len(rcpts); i++ {
		for j := i; j > 0; j-- {
			earlier := rcpts[j].Expected.Before(rcpts[j-1].Expected)
			tie := rcpts[j].Expected.Equal(rcpts[j-1].Expected) && rcpts[j].Quantity.LessThan(rcpts[j-1].Quantity)
			if !earlier && !tie {
				break
			}
			rcpts[j], rcpts[j-1] = rcpts[j-1], rcpts[j]
		}
	}
}

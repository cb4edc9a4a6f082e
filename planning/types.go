/*
Package planning implements the material and capacity requirements
planning engine.

PURPOSE:
  This package contains the core types and algorithms for a single-facility
  planning run: multi-level BOM explosion, time-phased netting against
  finite inventory, lot-sizing, backward scheduling by lead time, and
  finite-capacity bottleneck analysis.

KEY CONCEPTS IN THIS FILE (types.go):
  - Item/BOMLine/Resource: read-only catalog records
  - DemandLine/WorkOrder/InventoryPosition: read-only per-run inputs
  - MaterialRequirement/CapacityLoad: the engine's output records
  - Batch types: immutable, run-scoped output sets

DESIGN PRINCIPLES:
  1. Immutability: inputs are never mutated; outputs are created wholesale
     per run and superseded, never edited in place
  2. Precision: uses decimal.Decimal for all quantities, hours and money
  3. Determinism: a run's outputs are a pure function of its input snapshot
  4. Auditability: every batch carries its run id and as-of date

SEE ALSO:
  - bucket.go: day-granularity time buckets
  - catalog.go: input source interfaces and the run snapshot
  - run.go: the orchestrator that ties the stages together
*/
package planning

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type ResourceID string
type FacilityID string
type RunID string
type WorkOrderID string

// =============================================================================
// CATALOG RECORDS - Immutable during a planning run
// =============================================================================

// LotPolicy converts a net requirement into an order quantity.
type LotPolicy string

const (
	// LotForLot orders exactly the net amount.
	LotForLot LotPolicy = "lot-for-lot"
	// FixedOrderQty rounds the net amount up to the nearest multiple of LotSize.
	FixedOrderQty LotPolicy = "fixed-order-quantity"
	// MinOrderQty raises any non-zero net amount up to the LotSize floor.
	MinOrderQty LotPolicy = "min-order-quantity"
)

// MakeOrBuy marks whether an item is manufactured in-house or purchased.
type MakeOrBuy string

const (
	Make MakeOrBuy = "make"
	Buy  MakeOrBuy = "buy"
)

// Item is the planning view of a catalog item. A zero LeadTimeDays is valid
// (same-day availability); a negative one is a configuration error.
type Item struct {
	ID            ItemID
	Description   string
	UnitOfMeasure string
	LeadTimeDays  int
	LotPolicy     LotPolicy
	LotSize       decimal.Decimal // multiple for FixedOrderQty, floor for MinOrderQty
	SafetyStock   decimal.Decimal
	MakeOrBuy     MakeOrBuy
	UnitCost      decimal.Decimal
	SupplierID    string
}

// BOMLine is one parent-child edge of the bill-of-materials graph.
// All lines for a parent form its single-level BOM; the full graph must be
// acyclic and is checked before explosion.
type BOMLine struct {
	ParentID      ItemID
	ChildID       ItemID
	QtyPer        decimal.Decimal // child units per parent unit
	ScrapFactor   decimal.Decimal // 0..1, inflates gross requirements
	EffectiveFrom Bucket          // zero value = always effective
	EffectiveTo   Bucket          // zero value = no end date
}

// EffectiveOn reports whether the line is in effect on the given day.
func (l BOMLine) EffectiveOn(day Bucket) bool {
	if !l.EffectiveFrom.IsZero() && day.Before(l.EffectiveFrom) {
		return false
	}
	if !l.EffectiveTo.IsZero() && day.After(l.EffectiveTo) {
		return false
	}
	return true
}

// ResourceKind classifies a capacity resource.
type ResourceKind string

const (
	ResourceMachine  ResourceKind = "machine"
	ResourceLabor    ResourceKind = "labor"
	ResourceFacility ResourceKind = "facility"
)

// Resource is a finite-capacity work center.
type Resource struct {
	ID               ResourceID
	Name             string
	Kind             ResourceKind
	CapacityPerDay   decimal.Decimal // nominal unit-hours per bucket
	EfficiencyFactor decimal.Decimal // 0..1, derates nominal capacity
}

// Routing links an item to a resource with a standard time per unit.
// Work orders for the item load every resource in its routing.
type Routing struct {
	ItemID       ItemID
	ResourceID   ResourceID
	HoursPerUnit decimal.Decimal
}

// =============================================================================
// PER-RUN INPUTS - Supplied externally, never mutated by the engine
// =============================================================================

// DemandKind identifies where a demand line came from.
type DemandKind string

const (
	DemandSalesOrder DemandKind = "sales-order"
	DemandForecast   DemandKind = "forecast"
	DemandWorkOrder  DemandKind = "work-order"
)

// DemandLine is one unit of independent demand. Weight is the
// business-assigned priority (1 lowest .. 4 highest).
type DemandLine struct {
	Source       DemandKind
	Reference    string // order/forecast identifier, for traceability
	ItemID       ItemID
	Quantity     decimal.Decimal
	RequiredDate Bucket
	Weight       int
}

// WorkOrderStatus is the state of an open work order.
type WorkOrderStatus string

const (
	WorkOrderPlanned  WorkOrderStatus = "planned"
	WorkOrderReleased WorkOrderStatus = "released"
)

// WorkOrder is an open shop order. It is dependent demand for the item's
// components and load on the resources in the item's routing.
type WorkOrder struct {
	ID       WorkOrderID
	ItemID   ItemID
	Quantity decimal.Decimal
	Start    Bucket
	End      Bucket
	Status   WorkOrderStatus
	Weight   int
}

// ScheduledReceipt is inbound supply expected on a known date.
type ScheduledReceipt struct {
	Quantity decimal.Decimal
	Expected Bucket
}

// InventoryPosition is the stock state of one item at snapshot time.
// Available = OnHand - Reserved.
type InventoryPosition struct {
	ItemID            ItemID
	OnHand            decimal.Decimal
	Reserved          decimal.Decimal
	ScheduledReceipts []ScheduledReceipt
}

// Available returns on-hand net of reservations. May be negative when the
// source data is inconsistent; the netting stage records a warning for that.
func (p InventoryPosition) Available() decimal.Decimal {
	return p.OnHand.Sub(p.Reserved)
}

// =============================================================================
// OUTPUT RECORDS - Created wholesale per run, superseded never mutated
// =============================================================================

// PriorityClass ranks a shortage by urgency.
type PriorityClass string

const (
	PriorityCritical PriorityClass = "critical"
	PriorityHigh     PriorityClass = "high"
	PriorityMedium   PriorityClass = "medium"
	PriorityLow      PriorityClass = "low"
)

// RequirementStatus is the lifecycle state of a material requirement.
// The engine emits planned or shortage; ordered/received are set by the
// execution system that consumes the batch.
type RequirementStatus string

const (
	StatusPlanned  RequirementStatus = "planned"
	StatusOrdered  RequirementStatus = "ordered"
	StatusReceived RequirementStatus = "received"
	StatusShortage RequirementStatus = "shortage"
)

// MaterialRequirement is one item/bucket planning line. One record exists
// per item per bucket per run.
type MaterialRequirement struct {
	ItemID           ItemID
	Bucket           Bucket // required date bucket
	Gross            decimal.Decimal
	InventoryApplied decimal.Decimal
	ReceiptsApplied  decimal.Decimal
	Net              decimal.Decimal
	OrderQty         decimal.Decimal // lot-sized
	ReleaseBucket    Bucket          // Bucket - lead time
	ShortageQty      decimal.Decimal
	ShortageCost     decimal.Decimal
	Priority         PriorityClass
	Status           RequirementStatus
	DemandWeight     int // highest business priority feeding this line
}

// CapacityLoad is the load/capacity comparison for one resource/bucket.
type CapacityLoad struct {
	ResourceID  ResourceID
	Bucket      Bucket
	PlannedLoad decimal.Decimal // hours
	Available   decimal.Decimal // hours, after efficiency derating
	Utilization decimal.Decimal // PlannedLoad / Available; may exceed 1.0
	Bottleneck  bool
	ExcessHours decimal.Decimal // load beyond available, zero when under capacity
}

// =============================================================================
// BATCHES - Immutable run-scoped output sets
// =============================================================================

// MaterialRequirementBatch is the material side of one run's output.
type MaterialRequirementBatch struct {
	RunID        RunID
	FacilityID   FacilityID
	AsOf         Bucket
	Requirements []MaterialRequirement
	ItemErrors   []ItemError
	Warnings     []DataWarning
}

// CapacityLoadBatch is the capacity side of one run's output.
type CapacityLoadBatch struct {
	RunID      RunID
	FacilityID FacilityID
	AsOf       Bucket
	Loads      []CapacityLoad
	Warnings   []DataWarning
}

// RunSummary carries the aggregate figures dashboards display.
type RunSummary struct {
	RunID              RunID
	TotalMaterials     int // distinct items with at least one requirement
	ShortageItems      int // distinct items with a shortage
	CriticalShortages  int // requirement lines classified critical
	TotalShortageValue decimal.Decimal
	AverageLeadTime    decimal.Decimal // days, across planned items
}

// Summarize computes the run summary from a material batch against the
// catalog items used by the run.
func Summarize(batch MaterialRequirementBatch, items map[ItemID]Item) RunSummary {
	s := RunSummary{RunID: batch.RunID}

	planned := make(map[ItemID]bool)
	short := make(map[ItemID]bool)
	for _, r := range batch.Requirements {
		planned[r.ItemID] = true
		if r.ShortageQty.IsPositive() {
			short[r.ItemID] = true
			s.TotalShortageValue = s.TotalShortageValue.Add(r.ShortageCost)
			if r.Priority == PriorityCritical {
				s.CriticalShortages++
			}
		}
	}
	s.TotalMaterials = len(planned)
	s.ShortageItems = len(short)

	if len(planned) > 0 {
		total := decimal.Zero
		for id := range planned {
			total = total.Add(decimal.NewFromInt(int64(items[id].LeadTimeDays)))
		}
		s.AverageLeadTime = total.Div(decimal.NewFromInt(int64(len(planned)))).Round(2)
	}
	return s
}

/*
scenario.go - Built-in demo datasets

PURPOSE:
  Named, self-contained planning scenarios: a catalog, demand book and
  stock position that exercise the interesting paths of the engine
  (multi-level explosion, lot-sizing, past-due shortages, bottlenecks,
  and a deliberately broken BOM). Loaded through the scenario API and
  reused by integration tests.

  Scenario dates are fixed so repeated runs over the same scenario are
  byte-identical.
*/
package factory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/planning-engine/planning"
)

// Scenario bundles one named input dataset with its natural as-of date.
type Scenario struct {
	Name        string
	Description string
	AsOf        planning.Bucket
	Catalog     *StaticCatalog
	Demand      *StaticDemand
	Inventory   *StaticInventory
}

// Scenarios returns the built-in datasets in display order.
func Scenarios() []Scenario {
	return []Scenario{furniturePlant(), electronicsLine()}
}

// ByName finds a built-in scenario.
func ByName(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", name)
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// furniturePlant is a clean three-level make-to-order dataset: chairs built
// from machined seats and frames, which consume purchased planks.
func furniturePlant() Scenario {
	asOf := planning.NewBucket(2026, time.September, 1)
	day := asOf.AddDays

	return Scenario{
		Name:        "furniture-plant",
		Description: "Three-level chair BOM with lot-sized purchasing and a loaded CNC cell",
		AsOf:        asOf,
		Catalog: &StaticCatalog{
			ItemList: []planning.Item{
				{ID: "CHAIR", Description: "Dining chair", UnitOfMeasure: "ea", LeadTimeDays: 2, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Make, UnitCost: d("120")},
				{ID: "CHAIR-SEAT", Description: "Machined seat", UnitOfMeasure: "ea", LeadTimeDays: 3, LotPolicy: planning.FixedOrderQty, LotSize: d("20"), MakeOrBuy: planning.Make, UnitCost: d("35")},
				{ID: "CHAIR-FRAME", Description: "Machined frame", UnitOfMeasure: "ea", LeadTimeDays: 4, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Make, UnitCost: d("48")},
				{ID: "WOOD-PLANK", Description: "Oak plank", UnitOfMeasure: "ea", LeadTimeDays: 7, LotPolicy: planning.MinOrderQty, LotSize: d("50"), SafetyStock: d("20"), MakeOrBuy: planning.Buy, UnitCost: d("4"), SupplierID: "sup-timberworks"},
				{ID: "CUSHION", Description: "Seat cushion", UnitOfMeasure: "ea", LeadTimeDays: 10, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Buy, UnitCost: d("8"), SupplierID: "sup-softgoods"},
				{ID: "SCREW-PACK", Description: "Fastener pack", UnitOfMeasure: "pk", LeadTimeDays: 5, LotPolicy: planning.FixedOrderQty, LotSize: d("100"), MakeOrBuy: planning.Buy, UnitCost: d("1.50"), SupplierID: "sup-fastco"},
			},
			BOMList: []planning.BOMLine{
				{ParentID: "CHAIR", ChildID: "CHAIR-SEAT", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "CHAIR", ChildID: "CHAIR-FRAME", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "CHAIR", ChildID: "SCREW-PACK", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "CHAIR-SEAT", ChildID: "WOOD-PLANK", QtyPer: d("2"), ScrapFactor: d("0.1")},
				{ParentID: "CHAIR-SEAT", ChildID: "CUSHION", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "CHAIR-FRAME", ChildID: "WOOD-PLANK", QtyPer: d("3"), ScrapFactor: d("0.05")},
			},
			ResourceList: []planning.Resource{
				{ID: "cnc-1", Name: "CNC router", Kind: planning.ResourceMachine, CapacityPerDay: d("16"), EfficiencyFactor: d("0.9")},
				{ID: "assembly", Name: "Assembly line", Kind: planning.ResourceLabor, CapacityPerDay: d("24"), EfficiencyFactor: d("0.85")},
			},
			RoutingList: []planning.Routing{
				{ItemID: "CHAIR", ResourceID: "assembly", HoursPerUnit: d("0.5")},
				{ItemID: "CHAIR-SEAT", ResourceID: "cnc-1", HoursPerUnit: d("0.25")},
				{ItemID: "CHAIR-FRAME", ResourceID: "cnc-1", HoursPerUnit: d("0.4")},
			},
		},
		Demand: &StaticDemand{
			Lines: []planning.DemandLine{
				{Source: planning.DemandSalesOrder, Reference: "so-1001", ItemID: "CHAIR", Quantity: d("40"), RequiredDate: day(14), Weight: 3},
				{Source: planning.DemandSalesOrder, Reference: "so-1002", ItemID: "CHAIR", Quantity: d("25"), RequiredDate: day(21), Weight: 4},
				{Source: planning.DemandForecast, Reference: "fc-sep", ItemID: "CHAIR", Quantity: d("60"), RequiredDate: day(28), Weight: 1},
				// Rush order inside total lead time: surfaces as a shortage.
				{Source: planning.DemandSalesOrder, Reference: "so-1003", ItemID: "CHAIR", Quantity: d("10"), RequiredDate: day(3), Weight: 2},
			},
			Orders: []planning.WorkOrder{
				{ID: "wo-501", ItemID: "CHAIR-FRAME", Quantity: d("30"), Start: day(1), End: day(3), Status: planning.WorkOrderReleased, Weight: 2},
				{ID: "wo-502", ItemID: "CHAIR-SEAT", Quantity: d("40"), Start: day(2), End: day(5), Status: planning.WorkOrderPlanned, Weight: 2},
			},
		},
		Inventory: &StaticInventory{
			PositionList: []planning.InventoryPosition{
				{ItemID: "CHAIR", OnHand: d("5"), Reserved: d("2")},
				{ItemID: "CHAIR-SEAT", OnHand: d("12")},
				{ItemID: "CHAIR-FRAME", OnHand: d("8"), Reserved: d("3")},
				{ItemID: "WOOD-PLANK", OnHand: d("140"), Reserved: d("10"), ScheduledReceipts: []planning.ScheduledReceipt{
					{Quantity: d("100"), Expected: day(8)},
					{Quantity: d("100"), Expected: day(18)},
				}},
				{ItemID: "CUSHION", OnHand: d("30")},
				{ItemID: "SCREW-PACK", OnHand: d("45")},
			},
		},
	}
}

// electronicsLine exercises the failure paths: a BOM cycle between two
// boards, an item with a bad lot policy, and an overloaded SMT line.
func electronicsLine() Scenario {
	asOf := planning.NewBucket(2026, time.September, 1)
	day := asOf.AddDays

	return Scenario{
		Name:        "electronics-line",
		Description: "Broken controller BOM (cycle) next to a healthy sensor line running hot",
		AsOf:        asOf,
		Catalog: &StaticCatalog{
			ItemList: []planning.Item{
				{ID: "CONTROLLER", Description: "Controller unit", UnitOfMeasure: "ea", LeadTimeDays: 5, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Make, UnitCost: d("210")},
				{ID: "MAIN-BOARD", Description: "Main board", UnitOfMeasure: "ea", LeadTimeDays: 6, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Make, UnitCost: d("95")},
				{ID: "IO-BOARD", Description: "IO board", UnitOfMeasure: "ea", LeadTimeDays: 6, LotPolicy: planning.LotForLot, MakeOrBuy: planning.Make, UnitCost: d("60")},
				{ID: "SENSOR", Description: "Sensor assembly", UnitOfMeasure: "ea", LeadTimeDays: 4, LotPolicy: planning.FixedOrderQty, LotSize: d("25"), MakeOrBuy: planning.Make, UnitCost: d("42")},
				{ID: "SENSOR-PCB", Description: "Sensor PCB", UnitOfMeasure: "ea", LeadTimeDays: 9, LotPolicy: planning.MinOrderQty, LotSize: d("100"), MakeOrBuy: planning.Buy, UnitCost: d("6"), SupplierID: "sup-pcbhouse"},
				// Misconfigured: fixed-order-quantity without a lot size.
				{ID: "HOUSING", Description: "Sensor housing", UnitOfMeasure: "ea", LeadTimeDays: 12, LotPolicy: planning.FixedOrderQty, MakeOrBuy: planning.Buy, UnitCost: d("3")},
			},
			BOMList: []planning.BOMLine{
				// Cycle: the two boards reference each other.
				{ParentID: "CONTROLLER", ChildID: "MAIN-BOARD", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "MAIN-BOARD", ChildID: "IO-BOARD", QtyPer: d("1"), ScrapFactor: d("0.02")},
				{ParentID: "IO-BOARD", ChildID: "MAIN-BOARD", QtyPer: d("1"), ScrapFactor: d("0")},
				{ParentID: "SENSOR", ChildID: "SENSOR-PCB", QtyPer: d("1"), ScrapFactor: d("0.04")},
				{ParentID: "SENSOR", ChildID: "HOUSING", QtyPer: d("1"), ScrapFactor: d("0")},
			},
			ResourceList: []planning.Resource{
				{ID: "smt-line", Name: "SMT line", Kind: planning.ResourceMachine, CapacityPerDay: d("20"), EfficiencyFactor: d("1")},
				{ID: "test-bench", Name: "Test bench", Kind: planning.ResourceMachine, CapacityPerDay: d("12"), EfficiencyFactor: d("0.95")},
			},
			RoutingList: []planning.Routing{
				{ItemID: "SENSOR", ResourceID: "smt-line", HoursPerUnit: d("0.3")},
				{ItemID: "SENSOR", ResourceID: "test-bench", HoursPerUnit: d("0.1")},
				{ItemID: "CONTROLLER", ResourceID: "smt-line", HoursPerUnit: d("0.6")},
			},
		},
		Demand: &StaticDemand{
			Lines: []planning.DemandLine{
				{Source: planning.DemandSalesOrder, Reference: "so-2001", ItemID: "CONTROLLER", Quantity: d("15"), RequiredDate: day(20), Weight: 3},
				{Source: planning.DemandSalesOrder, Reference: "so-2002", ItemID: "SENSOR", Quantity: d("80"), RequiredDate: day(12), Weight: 4},
				{Source: planning.DemandForecast, Reference: "fc-q4", ItemID: "SENSOR", Quantity: d("120"), RequiredDate: day(30), Weight: 1},
			},
			Orders: []planning.WorkOrder{
				// Deliberately overcommits the SMT line.
				{ID: "wo-901", ItemID: "SENSOR", Quantity: d("90"), Start: day(5), End: day(5), Status: planning.WorkOrderReleased, Weight: 3},
				{ID: "wo-902", ItemID: "CONTROLLER", Quantity: d("10"), Start: day(5), End: day(6), Status: planning.WorkOrderPlanned, Weight: 2},
			},
		},
		Inventory: &StaticInventory{
			PositionList: []planning.InventoryPosition{
				{ItemID: "SENSOR", OnHand: d("10")},
				{ItemID: "SENSOR-PCB", OnHand: d("60"), ScheduledReceipts: []planning.ScheduledReceipt{
					{Quantity: d("100"), Expected: day(10)},
				}},
				// Inconsistent position: more reserved than on hand.
				{ItemID: "HOUSING", OnHand: d("4"), Reserved: d("9")},
			},
		},
	}
}

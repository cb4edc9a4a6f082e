/*
Package factory builds input sources for the planning engine.

PURPOSE:
  Provides static, in-memory implementations of the engine's source
  interfaces plus named demo scenarios. In production the sources are
  backed by the catalog, order and inventory services; the static sources
  stand in for them in tests, demos and the scenario API.

SEE ALSO:
  - planning/catalog.go: the interfaces implemented here
  - scenario.go: the built-in datasets
*/
package factory

import (
	"context"

	"github.com/warp/planning-engine/planning"
)

// =============================================================================
// STATIC SOURCES - Fixed data behind the source interfaces
// =============================================================================

// StaticCatalog serves a fixed catalog dataset.
type StaticCatalog struct {
	ItemList     []planning.Item
	BOMList      []planning.BOMLine
	ResourceList []planning.Resource
	RoutingList  []planning.Routing
}

func (c *StaticCatalog) Items(context.Context) ([]planning.Item, error)        { return c.ItemList, nil }
func (c *StaticCatalog) BOMLines(context.Context) ([]planning.BOMLine, error)  { return c.BOMList, nil }
func (c *StaticCatalog) Resources(context.Context) ([]planning.Resource, error) { return c.ResourceList, nil }
func (c *StaticCatalog) Routings(context.Context) ([]planning.Routing, error)  { return c.RoutingList, nil }

// StaticDemand serves fixed demand lines and work orders.
type StaticDemand struct {
	Lines  []planning.DemandLine
	Orders []planning.WorkOrder
}

func (d *StaticDemand) DemandLines(context.Context) ([]planning.DemandLine, error) { return d.Lines, nil }
func (d *StaticDemand) WorkOrders(context.Context) ([]planning.WorkOrder, error)   { return d.Orders, nil }

// StaticInventory serves fixed stock positions.
type StaticInventory struct {
	PositionList []planning.InventoryPosition
}

func (i *StaticInventory) Positions(context.Context) ([]planning.InventoryPosition, error) {
	return i.PositionList, nil
}

// =============================================================================
// FAILING SOURCES - For exercising infrastructural failure paths
// =============================================================================

// FailingCatalog always errors, simulating an unreachable catalog service.
type FailingCatalog struct{ Err error }

func (f *FailingCatalog) Items(context.Context) ([]planning.Item, error)         { return nil, f.Err }
func (f *FailingCatalog) BOMLines(context.Context) ([]planning.BOMLine, error)   { return nil, f.Err }
func (f *FailingCatalog) Resources(context.Context) ([]planning.Resource, error) { return nil, f.Err }
func (f *FailingCatalog) Routings(context.Context) ([]planning.Routing, error)   { return nil, f.Err }

// FailingInventory always errors, simulating an unreachable inventory service.
type FailingInventory struct{ Err error }

func (f *FailingInventory) Positions(context.Context) ([]planning.InventoryPosition, error) {
	return nil, f.Err
}

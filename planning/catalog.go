/*
catalog.go - Input source interfaces and the run snapshot

PURPOSE:
  Defines the read-only boundary between the engine and the systems that
  own master data. The engine reads everything ONCE at run start into a
  Snapshot and never re-reads mid-run; external edits during a run cannot
  affect its outputs.

SOURCES:
  CatalogSource:   items, BOM lines, resources, routings
  DemandSource:    sales order / forecast lines, open work orders
  InventorySource: on-hand, reservations, scheduled receipts

SNAPSHOT CONTRACT:
  - Taken atomically at run start (one read per source)
  - All slices sorted into a canonical order so two snapshots of the same
    data are identical, which makes run outputs reproducible
  - Lookup maps are derived once and shared read-only across stages

SEE ALSO:
  - run.go: takes the snapshot during the collecting stage
  - factory/: in-memory source implementations for scenarios and tests
*/
package planning

import (
	"context"
	"sort"
)

// =============================================================================
// SOURCE INTERFACES - External collaborators, read-only
// =============================================================================

// CatalogSource serves item, BOM, resource and routing master data.
type CatalogSource interface {
	Items(ctx context.Context) ([]Item, error)
	BOMLines(ctx context.Context) ([]BOMLine, error)
	Resources(ctx context.Context) ([]Resource, error)
	Routings(ctx context.Context) ([]Routing, error)
}

// DemandSource serves independent demand and open work orders.
type DemandSource interface {
	DemandLines(ctx context.Context) ([]DemandLine, error)
	WorkOrders(ctx context.Context) ([]WorkOrder, error)
}

// InventorySource serves stock positions including scheduled receipts.
type InventorySource interface {
	Positions(ctx context.Context) ([]InventoryPosition, error)
}

// =============================================================================
// SNAPSHOT - One consistent read of all inputs
// =============================================================================

// Snapshot is the complete, immutable input set of one planning run.
type Snapshot struct {
	Items      []Item
	BOMLines   []BOMLine
	Resources  []Resource
	Routings   []Routing
	Demand     []DemandLine
	WorkOrders []WorkOrder
	Positions  []InventoryPosition

	// Derived lookups, built once by TakeSnapshot.
	ItemByID       map[ItemID]Item
	PositionByID   map[ItemID]InventoryPosition
	ResourceByID   map[ResourceID]Resource
	RoutingsByItem map[ItemID][]Routing
}

// TakeSnapshot reads every source once and normalizes the result into a
// canonical order. Any source failure is infrastructural and fatal.
func TakeSnapshot(ctx context.Context, cat CatalogSource, dem DemandSource, inv InventorySource) (*Snapshot, error) {
	snap := &Snapshot{}

	var err error
	if snap.Items, err = cat.Items(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrCatalogUnavailable, err)}
	}
	if snap.BOMLines, err = cat.BOMLines(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrCatalogUnavailable, err)}
	}
	if snap.Resources, err = cat.Resources(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrCatalogUnavailable, err)}
	}
	if snap.Routings, err = cat.Routings(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrCatalogUnavailable, err)}
	}
	if snap.Demand, err = dem.DemandLines(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrDemandUnavailable, err)}
	}
	if snap.WorkOrders, err = dem.WorkOrders(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrDemandUnavailable, err)}
	}
	if snap.Positions, err = inv.Positions(ctx); err != nil {
		return nil, &FatalError{Stage: "collecting", Cause: wrapUnavailable(ErrInventoryUnavailable, err)}
	}

	snap.normalize()
	return snap, nil
}

func wrapUnavailable(sentinel, cause error) error {
	return &sourceError{sentinel: sentinel, cause: cause}
}

type sourceError struct {
	sentinel error
	cause    error
}

func (e *sourceError) Error() string { return e.sentinel.Error() + ": " + e.cause.Error() }
func (e *sourceError) Is(target error) bool { return target == e.sentinel }
func (e *sourceError) Unwrap() error { return e.cause }

// normalize sorts every slice into canonical order and builds lookup maps.
// Sorting here is what makes two runs over equal data byte-identical.
func (s *Snapshot) normalize() {
	sort.Slice(s.Items, func(i, j int) bool { return s.Items[i].ID < s.Items[j].ID })
	sort.Slice(s.Resources, func(i, j int) bool { return s.Resources[i].ID < s.Resources[j].ID })
	sort.Slice(s.BOMLines, func(i, j int) bool {
		a, b := s.BOMLines[i], s.BOMLines[j]
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		return a.ChildID < b.ChildID
	})
	sort.Slice(s.Routings, func(i, j int) bool {
		a, b := s.Routings[i], s.Routings[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.ResourceID < b.ResourceID
	})
	sort.Slice(s.Demand, func(i, j int) bool {
		a, b := s.Demand[i], s.Demand[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if !a.RequiredDate.Equal(b.RequiredDate) {
			return a.RequiredDate.Before(b.RequiredDate)
		}
		return a.Reference < b.Reference
	})
	sort.Slice(s.WorkOrders, func(i, j int) bool { return s.WorkOrders[i].ID < s.WorkOrders[j].ID })
	sort.Slice(s.Positions, func(i, j int) bool { return s.Positions[i].ItemID < s.Positions[j].ItemID })
	for i := range s.Positions {
		rcpts := s.Positions[i].ScheduledReceipts
		sort.Slice(rcpts, func(a, b int) bool {
			if !rcpts[a].Expected.Equal(rcpts[b].Expected) {
				return rcpts[a].Expected.Before(rcpts[b].Expected)
			}
			return rcpts[a].Quantity.LessThan(rcpts[b].Quantity)
		})
	}

	s.ItemByID = make(map[ItemID]Item, len(s.Items))
	for _, it := range s.Items {
		s.ItemByID[it.ID] = it
	}
	s.PositionByID = make(map[ItemID]InventoryPosition, len(s.Positions))
	for _, p := range s.Positions {
		s.PositionByID[p.ItemID] = p
	}
	s.ResourceByID = make(map[ResourceID]Resource, len(s.Resources))
	for _, r := range s.Resources {
		s.ResourceByID[r.ID] = r
	}
	s.RoutingsByItem = make(map[ItemID][]Routing, len(s.Routings))
	for _, r := range s.Routings {
		s.RoutingsByItem[r.ItemID] = append(s.RoutingsByItem[r.ItemID], r)
	}
}

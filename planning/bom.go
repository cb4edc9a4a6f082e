/*
bom.go - Bill-of-materials graph analysis

PURPOSE:
  Turns the snapshot's BOM lines into a directed graph and derives the two
  facts multi-level planning depends on:

  1. Cycle detection. The graph MUST be acyclic to explode. Detection runs
     an explicit visiting-set DFS (never call-stack recursion limits) before
     any explosion. A cycle poisons only its own sub-tree; unaffected
     branches still plan in the same run.

  2. Low-level codes. Each item's code is the DEEPEST level at which it
     appears across all paths from any top-level item. Processing items in
     ascending code order guarantees an item's aggregate gross requirement
     across all parents is complete before the item itself is exploded.

LEVELS AS A SCHEDULE:
  Levels() returns items grouped by code, each level sorted. The planner
  treats each level as a barrier: everything at code N finishes before
  anything at code N+1 starts, and items within a level are independent.

SEE ALSO:
  - planner.go: drives explosion and netting over Levels()
*/
package planning

import (
	"fmt"
	"sort"
)

// =============================================================================
// BOM GRAPH
// =============================================================================

// BOMGraph is the directed parent-to-child item graph. Effectivity windows
// are ignored for structure analysis (a line that is ever effective shapes
// the level ordering) and honored at explosion time.
type BOMGraph struct {
	lines    map[ItemID][]BOMLine // by parent, snapshot order
	parents  map[ItemID][]ItemID
	items    []ItemID // every item appearing on a line, sorted
	cycleSet map[ItemID]bool
	levels   map[ItemID]int
}

// NewBOMGraph builds the graph and immediately runs cycle detection and
// low-level-code assignment. Cycle members carry no level; they are excluded
// from every planning pass.
func NewBOMGraph(lines []BOMLine) *BOMGraph {
	g := &BOMGraph{
		lines:   make(map[ItemID][]BOMLine),
		parents: make(map[ItemID][]ItemID),
	}
	seen := make(map[ItemID]bool)
	for _, l := range lines {
		g.lines[l.ParentID] = append(g.lines[l.ParentID], l)
		g.parents[l.ChildID] = append(g.parents[l.ChildID], l.ParentID)
		for _, id := range []ItemID{l.ParentID, l.ChildID} {
			if !seen[id] {
				seen[id] = true
				g.items = append(g.items, id)
			}
		}
	}
	sort.Slice(g.items, func(i, j int) bool { return g.items[i] < g.items[j] })

	g.cycleSet = g.detectCycles()
	g.levels = g.lowLevelCodes()
	return g
}

// Children returns the BOM lines under a parent that are effective on the
// given day, excluding edges into cyclic sub-trees.
func (g *BOMGraph) Children(parent ItemID, day Bucket) []BOMLine {
	var out []BOMLine
	for _, l := range g.lines[parent] {
		if g.cycleSet[l.ChildID] {
			continue
		}
		if l.EffectiveOn(day) {
			out = append(out, l)
		}
	}
	return out
}

// HasBOM reports whether the item has any BOM lines at all.
func (g *BOMGraph) HasBOM(item ItemID) bool { return len(g.lines[item]) > 0 }

// InCycle reports whether the item participates in a BOM cycle.
func (g *BOMGraph) InCycle(item ItemID) bool { return g.cycleSet[item] }

// CycleMembers returns all items on a cycle, sorted.
func (g *BOMGraph) CycleMembers() []ItemID {
	out := make([]ItemID, 0, len(g.cycleSet))
	for id := range g.cycleSet {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LowLevelCode returns the item's code. Items with no BOM relations are
// level 0 end items.
func (g *BOMGraph) LowLevelCode(item ItemID) int { return g.levels[item] }

// Levels groups every known item id (plus the extra ids passed in, typically
// demanded items without BOM lines) by ascending low-level code. Cycle
// members are left out.
func (g *BOMGraph) Levels(extra []ItemID) [][]ItemID {
	byLevel := make(map[int][]ItemID)
	included := make(map[ItemID]bool)
	max := 0
	add := func(id ItemID) {
		if included[id] || g.cycleSet[id] {
			return
		}
		included[id] = true
		lvl := g.levels[id]
		byLevel[lvl] = append(byLevel[lvl], id)
		if lvl > max {
			max = lvl
		}
	}
	for _, id := range g.items {
		add(id)
	}
	for _, id := range extra {
		add(id)
	}

	out := make([][]ItemID, max+1)
	for lvl := 0; lvl <= max; lvl++ {
		ids := byLevel[lvl]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out[lvl] = ids
	}
	return out
}

// DescendantsOf returns every item reachable below the given item, sorted.
// Used to mark sub-trees blocked when an ancestor fails.
func (g *BOMGraph) DescendantsOf(item ItemID) []ItemID {
	seen := make(map[ItemID]bool)
	stack := []ItemID{item}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, l := range g.lines[cur] {
			if !seen[l.ChildID] {
				seen[l.ChildID] = true
				stack = append(stack, l.ChildID)
			}
		}
	}
	out := make([]ItemID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReachesCycle reports whether a cycle is reachable below the item.
func (g *BOMGraph) ReachesCycle(item ItemID) bool {
	if g.cycleSet[item] {
		return true
	}
	for _, d := range g.DescendantsOf(item) {
		if g.cycleSet[d] {
			return true
		}
	}
	return false
}

// =============================================================================
// CYCLE DETECTION - Explicit visiting-set DFS
// =============================================================================

const (
	colorWhite = 0 // unvisited
	colorGray  = 1 // on the current path
	colorBlack = 2 // fully explored
)

// detectCycles runs an iterative three-color DFS and returns the set of
// items that sit on at least one cycle.
func (g *BOMGraph) detectCycles() map[ItemID]bool {
	color := make(map[ItemID]int, len(g.items))
	cyclic := make(map[ItemID]bool)

	type frame struct {
		item ItemID
		next int // index into lines[item]
	}

	for _, root := range g.items {
		if color[root] != colorWhite {
			continue
		}
		stack := []frame{{item: root}}
		color[root] = colorGray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.lines[top.item]
			if top.next < len(edges) {
				child := edges[top.next].ChildID
				top.next++
				switch color[child] {
				case colorWhite:
					color[child] = colorGray
					stack = append(stack, frame{item: child})
				case colorGray:
					// Back edge: everything from child up the path is cyclic.
					for i := len(stack) - 1; i >= 0; i-- {
						cyclic[stack[i].item] = true
						if stack[i].item == child {
							break
						}
					}
				}
			} else {
				color[top.item] = colorBlack
				stack = stack[:len(stack)-1]
			}
		}
	}
	return cyclic
}

// =============================================================================
// LOW-LEVEL CODES - Longest path from any top-level item
// =============================================================================

// lowLevelCodes assigns each non-cyclic item the deepest level at which it
// appears. Kahn's topological ordering with level relaxation: a child's
// level is at least its deepest parent's level plus one.
func (g *BOMGraph) lowLevelCodes() map[ItemID]int {
	indegree := make(map[ItemID]int)
	for _, id := range g.items {
		if g.cycleSet[id] {
			continue
		}
		indegree[id] = 0
	}
	for _, id := range g.items {
		if g.cycleSet[id] {
			continue
		}
		for _, l := range g.lines[id] {
			if g.cycleSet[l.ChildID] {
				continue
			}
			indegree[l.ChildID]++
		}
	}

	levels := make(map[ItemID]int)
	var queue []ItemID
	for _, id := range g.items {
		if !g.cycleSet[id] && indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range g.lines[cur] {
			child := l.ChildID
			if g.cycleSet[child] {
				continue
			}
			if levels[cur]+1 > levels[child] {
				levels[child] = levels[cur] + 1
			}
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return levels
}

// structuralErrors reports cycle members and the top-level demanded items
// whose sub-trees reach a cycle.
func (g *BOMGraph) structuralErrors(demanded []ItemID) []ItemError {
	var errs []ItemError
	for _, id := range g.CycleMembers() {
		errs = append(errs, ItemError{
			ItemID: id,
			Class:  ErrorStructural,
			Stage:  "exploding",
			Detail: "item participates in a bom cycle",
			Cause:  ErrBOMCycle,
		})
	}
	for _, id := range demanded {
		if !g.cycleSet[id] && g.ReachesCycle(id) {
			errs = append(errs, ItemError{
				ItemID: id,
				Class:  ErrorStructural,
				Stage:  "exploding",
				Detail: fmt.Sprintf("bom below %s contains a cycle; affected components were not planned", id),
				Cause:  ErrBOMCycle,
			})
		}
	}
	return errs
}

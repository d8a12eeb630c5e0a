// Package graph builds an immutable, cycle-safe view of one network's
// structure entries. A Graph is a consistent snapshot: detection over it
// never observes a mutation mid-scan.
package graph

import (
	"sort"

	"github.com/rankforge/linkmesh/internal/model"
)

// Graph is a typed view of one network's entries and their target edges.
// Every entry has at most one outgoing edge (its target), so the graph is a
// functional graph: chains either terminate, dangle, or loop.
type Graph struct {
	networkID string
	entries   map[string]*model.StructureEntry
	order     []string            // entry IDs in sorted order, for deterministic iteration
	parents   map[string][]string // target ID -> sorted IDs of entries pointing at it
}

// New builds a graph snapshot from the given entries. Entries belonging to a
// different network are skipped; dangling target references are kept and
// surfaced via Dangling rather than dropped.
func New(networkID string, entries []*model.StructureEntry) *Graph {
	g := &Graph{
		networkID: networkID,
		entries:   make(map[string]*model.StructureEntry, len(entries)),
		parents:   make(map[string][]string),
	}
	for _, e := range entries {
		if e.NetworkID != networkID {
			continue
		}
		g.entries[e.ID] = e
		g.order = append(g.order, e.ID)
	}
	sort.Strings(g.order)
	for _, id := range g.order {
		e := g.entries[id]
		if e.TargetEntryID != "" {
			g.parents[e.TargetEntryID] = append(g.parents[e.TargetEntryID], id)
		}
	}
	return g
}

// NetworkID returns the network this snapshot was built for.
func (g *Graph) NetworkID() string {
	return g.networkID
}

// Len returns the number of entries in the snapshot.
func (g *Graph) Len() int {
	return len(g.entries)
}

// Entry returns the entry with the given ID, or nil.
func (g *Graph) Entry(id string) *model.StructureEntry {
	return g.entries[id]
}

// Entries returns all entries in deterministic (ID-sorted) order.
func (g *Graph) Entries() []*model.StructureEntry {
	out := make([]*model.StructureEntry, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entries[id])
	}
	return out
}

// Target resolves the entry's outgoing edge. It returns nil when the entry
// has no target or the target references an entry outside the snapshot.
func (g *Graph) Target(e *model.StructureEntry) *model.StructureEntry {
	if e == nil || e.TargetEntryID == "" {
		return nil
	}
	return g.entries[e.TargetEntryID]
}

// Parents returns the entries whose target edge points at id, in
// deterministic order.
func (g *Graph) Parents(id string) []*model.StructureEntry {
	ids := g.parents[id]
	out := make([]*model.StructureEntry, 0, len(ids))
	for _, pid := range ids {
		out = append(out, g.entries[pid])
	}
	return out
}

// MainEntries returns all entries with domain_role=main, in deterministic
// order. Zero or more than one main is possible; the detector decides what
// that means.
func (g *Graph) MainEntries() []*model.StructureEntry {
	var out []*model.StructureEntry
	for _, id := range g.order {
		if e := g.entries[id]; e.IsMain() {
			out = append(out, e)
		}
	}
	return out
}

// Dangling returns entries whose target_entry_id references an entry that is
// not part of this snapshot.
func (g *Graph) Dangling() []*model.StructureEntry {
	var out []*model.StructureEntry
	for _, id := range g.order {
		e := g.entries[id]
		if e.TargetEntryID != "" && g.entries[e.TargetEntryID] == nil {
			out = append(out, e)
		}
	}
	return out
}

// Chain is the result of walking an entry's target chain.
type Chain struct {
	// Path holds the visited entries in order, starting with the walked
	// entry's target. The walked entry itself is not included.
	Path []*model.StructureEntry
	// Cyclic is set when the walk revisited an entry already on the path.
	Cyclic bool
	// Truncated is set when the hop budget ran out before the chain
	// terminated. Callers should treat the result as degraded, not final.
	Truncated bool
}

// WalkChain follows the target chain from e with a bounded hop count. A
// maxHops of zero or less defaults to the snapshot size; any chain longer
// than the node count has necessarily looped, so the walk can never hang.
func (g *Graph) WalkChain(e *model.StructureEntry, maxHops int) Chain {
	if maxHops <= 0 || maxHops > len(g.entries) {
		maxHops = len(g.entries)
	}

	var chain Chain
	visited := map[string]bool{e.ID: true}
	cur := g.Target(e)
	for hops := 0; cur != nil; hops++ {
		if visited[cur.ID] {
			chain.Cyclic = true
			return chain
		}
		if hops >= maxHops {
			chain.Truncated = true
			return chain
		}
		visited[cur.ID] = true
		chain.Path = append(chain.Path, cur)
		cur = g.Target(cur)
	}
	return chain
}

// Cycles returns every cycle in the snapshot exactly once. Each cycle is
// rotated so its lexicographically smallest entry ID comes first, and cycles
// are sorted by that first ID, so repeated scans of the same snapshot yield
// identical output.
//
// Because out-degree is at most one, every cycle is a simple loop and each
// entry belongs to at most one cycle.
func (g *Graph) Cycles() [][]*model.StructureEntry {
	const (
		unvisited  = 0
		inProgress = 1 // on the current walk
		done       = 2
	)
	state := make(map[string]int, len(g.entries))

	var cycles [][]*model.StructureEntry
	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}

		// Walk the chain, recording the path until we terminate, dangle,
		// or hit a previously seen entry.
		var path []string
		onPath := make(map[string]int)
		id := start
		for {
			if state[id] == done {
				break
			}
			if pos, ok := onPath[id]; ok {
				cycles = append(cycles, g.rotateCycle(path[pos:]))
				break
			}
			onPath[id] = len(path)
			path = append(path, id)
			state[id] = inProgress
			next := g.entries[id].TargetEntryID
			if next == "" || g.entries[next] == nil {
				break
			}
			id = next
		}
		for _, pid := range path {
			state[pid] = done
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].ID < cycles[j][0].ID
	})
	return cycles
}

// rotateCycle rotates a cycle's member IDs so the smallest comes first and
// resolves them to entries.
func (g *Graph) rotateCycle(ids []string) []*model.StructureEntry {
	min := 0
	for i, id := range ids {
		if id < ids[min] {
			min = i
		}
	}
	out := make([]*model.StructureEntry, 0, len(ids))
	for i := range ids {
		out = append(out, g.entries[ids[(min+i)%len(ids)]])
	}
	return out
}

// ReachableFromMain returns the set of entry IDs whose target chain reaches a
// main entry, computed by walking reverse edges from every main. Mains are
// included in the set.
func (g *Graph) ReachableFromMain() map[string]bool {
	reached := make(map[string]bool)
	var queue []string
	for _, m := range g.MainEntries() {
		reached[m.ID] = true
		queue = append(queue, m.ID)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, pid := range g.parents[id] {
			if !reached[pid] {
				reached[pid] = true
				queue = append(queue, pid)
			}
		}
	}
	return reached
}

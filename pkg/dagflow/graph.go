package dagflow

import (
	"container/heap"
	"slices"
	"sort"
)

// Edge connects a source to the step that reads it.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is the dependency graph of a Definition. Edges point from a source
// to the step that consumes it, so values flow along them.
// A Graph is immutable and safe for concurrent use.
type Graph struct {
	names []string // declaration order
	index map[string]int
	kinds map[string]Kind
	edges []Edge
	preds map[string][]string
	succs map[string][]string
	order []string
	level map[string]int
}

// newGraph derives the edges from each step's sources and orders the nodes.
// Returns *CyclicDependencyError if the nodes cannot all be ordered.
func newGraph(nodes map[string]*Node, order []string) (*Graph, error) {
	g := &Graph{
		names: order,
		index: make(map[string]int, len(order)),
		kinds: make(map[string]Kind, len(order)),
		preds: make(map[string][]string),
		succs: make(map[string][]string),
		level: make(map[string]int, len(order)),
	}

	// Canonical index: rank by name, so ordering never depends on map iteration
	// or declaration order.
	sorted := slices.Sorted(slices.Values(order))
	for i, name := range sorted {
		g.index[name] = i
	}

	for _, name := range order {
		n := nodes[name]
		g.kinds[name] = n.kind
		seen := make(map[string]bool)
		for _, src := range n.Sources() {
			if seen[src.Target] {
				continue
			}
			seen[src.Target] = true
			g.edges = append(g.edges, Edge{From: src.Target, To: name, Label: n.label})
			g.preds[name] = append(g.preds[name], src.Target)
			g.succs[src.Target] = append(g.succs[src.Target], name)
		}
	}
	for name := range g.succs {
		g.sortByIndex(g.succs[name])
	}

	if err := g.orderNodes(sorted); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) sortByIndex(names []string) {
	sort.Slice(names, func(i, j int) bool { return g.index[names[i]] < g.index[names[j]] })
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// orderNodes runs Kahn's algorithm with a min-heap ready queue and records
// each node's level (longest distance from a seed).
func (g *Graph) orderNodes(sorted []string) error {
	indeg := make([]int, len(sorted))
	for i, name := range sorted {
		indeg[i] = len(g.preds[name])
	}

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	g.order = make([]string, 0, len(sorted))
	for ready.Len() > 0 {
		name := sorted[heap.Pop(ready).(int)]
		g.order = append(g.order, name)
		for _, next := range g.succs[name] {
			if lvl := g.level[name] + 1; lvl > g.level[next] {
				g.level[next] = lvl
			}
			j := g.index[next]
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}

	if len(g.order) == len(sorted) {
		return nil
	}

	var remaining []string
	for i, name := range sorted {
		if indeg[i] > 0 {
			remaining = append(remaining, name)
		}
	}
	return &CyclicDependencyError{
		Nodes: remaining,
		Cycle: g.findCycle(sorted),
	}
}

// findCycle returns one cycle as a path whose first and last entries match.
// The DFS visits nodes and successors in canonical order, so the witness is
// stable across runs.
func (g *Graph) findCycle(sorted []string) []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(sorted))
	parent := make(map[string]string, len(sorted))
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range g.succs[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back edge u -> v: walk parents from u back to v.
				cycle = append(cycle, v)
				for cur := u; cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, name := range sorted {
		if color[name] == white && dfs(name) {
			break
		}
	}
	slices.Reverse(cycle)
	return cycle
}

// Nodes returns node names in declaration order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.names)
}

// Edges returns every edge, grouped by consuming step in declaration order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// HasEdge reports whether from is a source of to.
func (g *Graph) HasEdge(from, to string) bool {
	return slices.Contains(g.preds[to], from)
}

// Predecessors returns the distinct sources of name.
func (g *Graph) Predecessors(name string) []string {
	return slices.Clone(g.preds[name])
}

// Successors returns the steps that read name, in name order.
func (g *Graph) Successors(name string) []string {
	return slices.Clone(g.succs[name])
}

// TopologicalOrder returns every node with sources before consumers.
// Ties are broken by name.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.order)
}

// Level returns the length of the longest path from a seed to name.
// Seeds are level 0. Unknown names return -1.
func (g *Graph) Level(name string) int {
	if _, ok := g.kinds[name]; !ok {
		return -1
	}
	return g.level[name]
}

// Levels groups nodes by Level. Nodes within one level do not depend on
// each other and may be computed in parallel.
func (g *Graph) Levels() [][]string {
	var levels [][]string
	for _, name := range g.order {
		l := g.level[name]
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], name)
	}
	return levels
}

// descendants returns every node reachable from name, excluding name,
// in topological order.
func (g *Graph) descendants(name string) []string {
	reached := make(map[string]bool)
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succs[cur] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	out := make([]string, 0, len(reached))
	for _, n := range g.order {
		if reached[n] {
			out = append(out, n)
		}
	}
	return out
}

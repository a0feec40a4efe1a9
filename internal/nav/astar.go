// Package nav implements path search over the road network: an adaptive A*
// whose edge costs depend on cargo fragility and road conditions, a plain
// length-only shortest path for the legacy dispatcher, and uninformed
// DFS/BFS used by the comparison modes and by obstacle reachability checks.
package nav

import (
	"container/heap"
	"math"

	"fleetsim/internal/config"
	"fleetsim/internal/graph"
	"fleetsim/internal/metrics"
)

// Navigator computes cargo-aware paths and costs. It holds a read-only view
// of the network and is safe for concurrent use.
type Navigator struct {
	g    *graph.Network
	cost config.CostModel
}

func New(g *graph.Network, cm config.CostModel) *Navigator {
	return &Navigator{g: g, cost: cm}
}

// EdgeCost prices a single edge. Every factor is finite, so any edge that is
// topologically present stays traversable as a last resort.
func (n *Navigator) EdgeCost(e graph.Edge, fragile bool) float64 {
	c := e.LengthM
	if e.Blocked {
		c *= n.cost.BlockFactor
	}
	if e.Pavement == graph.PavementBad {
		if fragile {
			c *= n.cost.FragileBadPavement
		} else {
			c *= n.cost.BadPavement
		}
	}
	return c * (1 + e.Traffic)
}

// Path returns the cheapest node sequence from start to end under the
// fragility-aware cost model. An empty slice means no path exists.
func (n *Navigator) Path(start, end int64, fragile bool) []int64 {
	path, _ := n.search(start, end, func(e graph.Edge) float64 { return n.EdgeCost(e, fragile) }, "astar")
	return path
}

// PathCost returns the cost of the cheapest path, or +Inf when the
// destination is topologically unreachable. Callers treat +Inf as
// "undeliverable on this depot assignment".
func (n *Navigator) PathCost(start, end int64, fragile bool) float64 {
	path, cost := n.search(start, end, func(e graph.Edge) float64 { return n.EdgeCost(e, fragile) }, "astar")
	if path == nil {
		return math.Inf(1)
	}
	return cost
}

// ShortestPath is the legacy oracle: cheapest path over raw edge length with
// no fragility, traffic, or blockage awareness.
func (n *Navigator) ShortestPath(start, end int64) []int64 {
	path, _ := n.search(start, end, func(e graph.Edge) float64 { return e.LengthM }, "length")
	return path
}

// search runs A* with a straight-line heuristic between node coordinates.
// The minimum achievable per-meter multiplier under any weight function used
// here is 1.0, so the raw Euclidean distance never overestimates the
// remaining cost and optimality holds. Nodes without coordinates degrade to
// a zero heuristic (uninformed but still correct). Lazy decrease-key:
// duplicates are pushed and stale pops skipped.
func (n *Navigator) search(start, end int64, weight func(graph.Edge) float64, label string) ([]int64, float64) {
	if _, ok := n.g.Node(start); !ok {
		return nil, 0
	}
	if _, ok := n.g.Node(end); !ok {
		return nil, 0
	}
	metrics.NavSearches.WithLabelValues(label).Inc()
	if start == end {
		return []int64{start}, 0
	}
	h := func(id int64) float64 {
		if d, ok := n.g.Distance(id, end); ok {
			return d
		}
		return 0
	}
	dist := map[int64]float64{start: 0}
	prev := map[int64]int64{}
	done := map[int64]bool{}
	pq := &nodeHeap{{id: start, priority: h(start)}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		metrics.NavExpansions.Inc()
		if cur.id == end {
			return reconstruct(prev, start, end), dist[end]
		}
		for _, e := range n.g.Out(cur.id) {
			if done[e.To] {
				continue
			}
			nd := dist[cur.id] + weight(e)
			if old, seen := dist[e.To]; !seen || nd < old {
				dist[e.To] = nd
				prev[e.To] = cur.id
				heap.Push(pq, nodeItem{id: e.To, priority: nd + h(e.To)})
			}
		}
	}
	return nil, 0
}

func reconstruct(prev map[int64]int64, start, end int64) []int64 {
	path := []int64{end}
	for cur := end; cur != start; {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type nodeItem struct {
	id       int64
	priority float64
}

type nodeHeap []nodeItem

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(nodeItem)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

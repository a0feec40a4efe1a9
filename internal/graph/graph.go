// Package graph models the annotated road network the dispatchers navigate.
// The network is built once per run and read-only afterwards; attribute gaps
// are defaulted to safe values instead of failing.
package graph

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

type Pavement string

const (
	PavementGood Pavement = "good"
	PavementFair Pavement = "fair"
	PavementBad  Pavement = "bad"
)

// Node is a junction. HasPos is false when the scenario omitted coordinates;
// the navigator then falls back to an uninformed (zero) heuristic.
type Node struct {
	ID     int64
	X, Y   float64
	HasPos bool
}

// Edge is a directed road segment with simulation attributes.
type Edge struct {
	From, To int64
	LengthM  float64
	Traffic  float64 // congestion in [0,1]
	Pavement Pavement
	Blocked  bool
	MaxKph   float64
}

// Network is a directed weighted road graph.
type Network struct {
	nodes map[int64]Node
	out   map[int64][]Edge
	edges int
}

func New() *Network {
	return &Network{nodes: map[int64]Node{}, out: map[int64][]Edge{}}
}

func (g *Network) AddNode(id int64, x, y float64) {
	g.nodes[id] = Node{ID: id, X: x, Y: y, HasPos: true}
}

// AddBareNode registers a node without coordinates.
func (g *Network) AddBareNode(id int64) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = Node{ID: id}
	}
}

// AddEdge inserts a directed edge, defaulting missing attributes: zero
// traffic, good pavement, not blocked, 40 km/h.
func (g *Network) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("edge %d->%d: unknown node %d", e.From, e.To, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("edge %d->%d: unknown node %d", e.From, e.To, e.To)
	}
	if e.LengthM <= 0 {
		return fmt.Errorf("edge %d->%d: length must be positive", e.From, e.To)
	}
	if math.IsNaN(e.Traffic) || e.Traffic < 0 {
		e.Traffic = 0
	}
	if e.Traffic > 1 {
		e.Traffic = 1
	}
	switch e.Pavement {
	case PavementGood, PavementFair, PavementBad:
	default:
		e.Pavement = PavementGood
	}
	if e.MaxKph <= 0 {
		e.MaxKph = 40
	}
	g.out[e.From] = append(g.out[e.From], e)
	g.edges++
	return nil
}

// AddRoad inserts the edge in both directions with identical attributes.
func (g *Network) AddRoad(e Edge) error {
	if err := g.AddEdge(e); err != nil {
		return err
	}
	e.From, e.To = e.To, e.From
	return g.AddEdge(e)
}

func (g *Network) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Out returns the outgoing edges of id. The returned slice must not be
// mutated by callers.
func (g *Network) Out(id int64) []Edge {
	return g.out[id]
}

// EdgeBetween returns the first edge from u to v, if any.
func (g *Network) EdgeBetween(u, v int64) (Edge, bool) {
	for _, e := range g.out[u] {
		if e.To == v {
			return e, true
		}
	}
	return Edge{}, false
}

// NodeIDs returns all node IDs in ascending order for deterministic walks.
func (g *Network) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Network) NodeCount() int { return len(g.nodes) }
func (g *Network) EdgeCount() int { return g.edges }

// RandomNode picks a node with the supplied rng, deterministic per seed.
func (g *Network) RandomNode(rng *rand.Rand) int64 {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return 0
	}
	return ids[rng.Intn(len(ids))]
}

// Distance returns the straight-line distance between two nodes, or 0 with
// ok=false when either node has no coordinates.
func (g *Network) Distance(u, v int64) (float64, bool) {
	a, okA := g.nodes[u]
	b, okB := g.nodes[v]
	if !okA || !okB || !a.HasPos || !b.HasPos {
		return 0, false
	}
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy), true
}

package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdgeValidation(t *testing.T) {
	g := New()
	g.AddBareNode(1)
	g.AddBareNode(2)

	require.NoError(t, g.AddEdge(Edge{From: 1, To: 2, LengthM: 100}))
	assert.Error(t, g.AddEdge(Edge{From: 1, To: 99, LengthM: 100}), "unknown target node")
	assert.Error(t, g.AddEdge(Edge{From: 99, To: 2, LengthM: 100}), "unknown source node")
	assert.Error(t, g.AddEdge(Edge{From: 1, To: 2, LengthM: 0}), "non-positive length")
	assert.Error(t, g.AddEdge(Edge{From: 1, To: 2, LengthM: -5}))
}

func TestAddEdgeDefaults(t *testing.T) {
	g := New()
	g.AddBareNode(1)
	g.AddBareNode(2)
	require.NoError(t, g.AddEdge(Edge{From: 1, To: 2, LengthM: 100, Traffic: 2.5}))

	e, ok := g.EdgeBetween(1, 2)
	require.True(t, ok)
	assert.Equal(t, 1.0, e.Traffic, "traffic clamped to [0,1]")
	assert.Equal(t, PavementGood, e.Pavement)
	assert.Equal(t, 40.0, e.MaxKph)
}

func TestAddRoadBothDirections(t *testing.T) {
	g := New()
	g.AddBareNode(1)
	g.AddBareNode(2)
	require.NoError(t, g.AddRoad(Edge{From: 1, To: 2, LengthM: 250, Pavement: PavementBad}))

	fwd, ok := g.EdgeBetween(1, 2)
	require.True(t, ok)
	rev, ok := g.EdgeBetween(2, 1)
	require.True(t, ok)
	assert.Equal(t, fwd.LengthM, rev.LengthM)
	assert.Equal(t, PavementBad, rev.Pavement)
	assert.Equal(t, 2, g.EdgeCount())
}

func TestDistance(t *testing.T) {
	g := New()
	g.AddNode(1, 0, 0)
	g.AddNode(2, 3, 4)
	g.AddBareNode(3)

	d, ok := g.Distance(1, 2)
	require.True(t, ok)
	assert.InDelta(t, 5.0, d, 1e-9)

	_, ok = g.Distance(1, 3)
	assert.False(t, ok, "no distance to a node without coordinates")
}

func TestNodeIDsSorted(t *testing.T) {
	g := New()
	for _, id := range []int64{5, 1, 3} {
		g.AddBareNode(id)
	}
	assert.Equal(t, []int64{1, 3, 5}, g.NodeIDs())
}

func TestRandomNodeDeterministic(t *testing.T) {
	g := New()
	for id := int64(0); id < 20; id++ {
		g.AddBareNode(id)
	}
	a := g.RandomNode(rand.New(rand.NewSource(7)))
	b := g.RandomNode(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

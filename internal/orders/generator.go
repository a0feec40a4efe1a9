// Package orders produces the delivery sets a scenario runs against, either
// generated reproducibly from a seed or imported from a CSV drop file.
package orders

import (
	"math/rand"

	"fleetsim/internal/graph"
	"fleetsim/internal/model"
)

// Generate creates count orders on random network nodes, reproducible per
// seed: deadlines 10..120 minutes, weights 1..8 kg, a fragile coin flip, and
// a normal/VIP class split.
func Generate(g *graph.Network, count int, seed int64) []*model.Order {
	rng := rand.New(rand.NewSource(seed))
	out := make([]*model.Order, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &model.Order{
			ID:            int64(i + 1),
			NodeID:        g.RandomNode(rng),
			DeadlineMin:   float64(10 + rng.Intn(111)),
			WeightKg:      1 + rng.Float64()*7,
			Fragile:       rng.Intn(2) == 1,
			PriorityClass: rng.Intn(2),
			Integrity:     100,
		})
	}
	return out
}

// FromSpecs instantiates the orders embedded in a scenario document.
func FromSpecs(specs []model.Order) []*model.Order {
	out := make([]*model.Order, 0, len(specs))
	for i := range specs {
		o := specs[i]
		o.Integrity = 100
		o.Delivered = false
		out = append(out, &o)
	}
	return out
}

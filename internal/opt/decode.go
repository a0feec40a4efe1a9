package opt

import "fleetsim/internal/model"

// Leg is one physical hop of a decoded route. OrderIdx is -1 for depot
// returns. Fragile is the cost-model flag for the hop: true once any fragile
// order has been picked up in the current load cycle, cleared only by a full
// depot unload (fragility contamination).
type Leg struct {
	From, To int64
	Fragile  bool
	OrderIdx int
}

// DecodeLegs expands a permutation of order indices into depot-anchored
// physical legs. Capacity is enforced structurally: whenever the next order
// would overflow the truck, a depot round trip is inserted and both the load
// and the fragile state reset. An order heavier than the whole truck still
// decodes, as its own one-order load cycle. The trailing depot return is
// always present.
func DecodeLegs(orders []*model.Order, depot int64, capacityKg float64, seq []int) []Leg {
	legs := make([]Leg, 0, len(seq)+2)
	current := depot
	load := 0.0
	fragileAboard := false
	for _, idx := range seq {
		o := orders[idx]
		if load+o.WeightKg > capacityKg && load > 0 {
			legs = append(legs, Leg{From: current, To: depot, Fragile: fragileAboard, OrderIdx: -1})
			current = depot
			load = 0
			fragileAboard = false
		}
		legFragile := fragileAboard || o.Fragile
		legs = append(legs, Leg{From: current, To: o.NodeID, Fragile: legFragile, OrderIdx: idx})
		current = o.NodeID
		load += o.WeightKg
		fragileAboard = legFragile
	}
	legs = append(legs, Leg{From: current, To: depot, Fragile: fragileAboard, OrderIdx: -1})
	return legs
}

// CycleWeights returns the cumulative weight of each load cycle of a decoded
// sequence, in order. Used to assert the capacity invariant.
func CycleWeights(orders []*model.Order, capacityKg float64, seq []int) []float64 {
	weights := []float64{}
	load := 0.0
	for _, idx := range seq {
		w := orders[idx].WeightKg
		if load+w > capacityKg && load > 0 {
			weights = append(weights, load)
			load = 0
		}
		load += w
	}
	if load > 0 {
		weights = append(weights, load)
	}
	return weights
}

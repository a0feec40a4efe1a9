package sim

import "fleetsim/internal/model"

// Truck tracks the cargo of the current load cycle. Orders stay aboard (and
// damageable) until delivered; the cycle's weight is committed at the depot
// and only released by a full unload.
type Truck struct {
	CapacityKg float64
	cargo      []*model.Order
	loadKg     float64
}

func NewTruck(capacityKg float64) *Truck {
	return &Truck{CapacityKg: capacityKg}
}

func (t *Truck) LoadKg() float64 { return t.loadKg }

func (t *Truck) CanLoad(weightKg float64) bool {
	return t.loadKg+weightKg <= t.CapacityKg
}

func (t *Truck) Load(o *model.Order) {
	t.cargo = append(t.cargo, o)
	t.loadKg += o.WeightKg
}

// Deliver removes the order from the damageable cargo but keeps its weight
// committed until the next depot unload.
func (t *Truck) Deliver(o *model.Order) {
	for i, c := range t.cargo {
		if c == o {
			t.cargo = append(t.cargo[:i], t.cargo[i+1:]...)
			return
		}
	}
}

func (t *Truck) UnloadAll() {
	t.cargo = nil
	t.loadKg = 0
}

// FragileAboard returns the undelivered fragile orders currently riding.
func (t *Truck) FragileAboard() []*model.Order {
	var out []*model.Order
	for _, o := range t.cargo {
		if o.Fragile {
			out = append(out, o)
		}
	}
	return out
}

package api

import (
	"fmt"

	"fleetsim/internal/model"
	"fleetsim/internal/sim"
)

func validateScenario(sc *model.Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Synth == nil && len(sc.Nodes) == 0 {
		return fmt.Errorf("scenario needs nodes or a synth spec")
	}
	if sc.Synth != nil {
		if sc.Synth.Side < 2 {
			return fmt.Errorf("synth.side must be >= 2")
		}
		if sc.Synth.Orders < 0 {
			return fmt.Errorf("synth.orders must be >= 0")
		}
	}
	for _, e := range sc.Edges {
		if e.LengthM <= 0 {
			return fmt.Errorf("edge %d->%d: length must be > 0", e.From, e.To)
		}
		if e.Traffic < 0 || e.Traffic > 1 {
			return fmt.Errorf("edge %d->%d: traffic must be in [0,1]", e.From, e.To)
		}
	}
	for _, o := range sc.Orders {
		if o.WeightKg <= 0 {
			return fmt.Errorf("order %d: weight must be > 0", o.ID)
		}
		if o.DeadlineMin <= 0 {
			return fmt.Errorf("order %d: deadline must be > 0", o.ID)
		}
	}
	return nil
}

func validateRunRequest(req *model.RunRequest) error {
	if req.ScenarioID == "" {
		return fmt.Errorf("scenarioId is required")
	}
	if req.Mode == "" {
		req.Mode = sim.ModeSmart
	}
	if !sim.ValidMode(req.Mode) {
		return fmt.Errorf("invalid mode: %s", req.Mode)
	}
	if req.Seed < 0 {
		return fmt.Errorf("seed must be >= 0")
	}
	return nil
}

package sim

import (
	"context"

	"fleetsim/internal/model"
)

// Comparison holds per-mode reports of one scenario run with one seed, plus
// the smart-minus-legacy deltas when both modes are present.
type Comparison struct {
	Seed    int64                      `json:"seed"`
	Reports map[string]model.RunReport `json:"reports"`
	Delta   map[string]float64         `json:"delta,omitempty"`
}

// Compare runs the requested modes back to back on the same simulator and
// order set. Runs are sequential; each one resets the orders, so the modes
// see identical starting conditions.
func Compare(ctx context.Context, s *Simulator, modes []string, seed int64) (Comparison, error) {
	if len(modes) == 0 {
		modes = []string{ModeLegacy, ModeSmart}
	}
	cmp := Comparison{Seed: seed, Reports: map[string]model.RunReport{}}
	for _, mode := range modes {
		rep, _, err := s.Run(ctx, mode, seed)
		if err != nil {
			return cmp, err
		}
		cmp.Seed = rep.Seed
		seed = rep.Seed
		cmp.Reports[mode] = rep
	}
	smart, okS := cmp.Reports[ModeSmart]
	legacy, okL := cmp.Reports[ModeLegacy]
	if okS && okL {
		cmp.Delta = map[string]float64{
			"distanceKm":    round2(smart.DistanceKm - legacy.DistanceKm),
			"timeMin":       round2(smart.TimeMin - legacy.TimeMin),
			"fuelCost":      round2(smart.FuelCost - legacy.FuelCost),
			"onTime":        float64(smart.OnTime - legacy.OnTime),
			"integrityLoss": float64(smart.IntegrityLoss - legacy.IntegrityLoss),
			"avgIntegrity":  round2(smart.AvgIntegrity - legacy.AvgIntegrity),
		}
	}
	return cmp, nil
}

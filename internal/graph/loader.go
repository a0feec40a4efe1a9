package graph

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"fleetsim/internal/model"
)

// LoadScenario parses a YAML scenario document.
func LoadScenario(path string) (model.Scenario, error) {
	var sc model.Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

// Build materializes the road network of a scenario. Synthetic scenarios are
// generated and enriched from the embedded seed, so obstacle injection
// happens strictly before any optimizer or simulator touches the graph.
func Build(sc model.Scenario) (*Network, error) {
	if sc.Synth != nil {
		return Synthesize(*sc.Synth), nil
	}
	g := New()
	for _, n := range sc.Nodes {
		g.AddNode(n.ID, n.X, n.Y)
	}
	for _, e := range sc.Edges {
		edge := Edge{
			From:     e.From,
			To:       e.To,
			LengthM:  e.LengthM,
			Traffic:  e.Traffic,
			Pavement: Pavement(e.Pavement),
			Blocked:  e.Blocked,
			MaxKph:   e.MaxKph,
		}
		var err error
		if e.OneWay {
			err = g.AddEdge(edge)
		} else {
			err = g.AddRoad(edge)
		}
		if err != nil {
			return nil, err
		}
	}
	if _, ok := g.Node(sc.Depot); !ok {
		return nil, fmt.Errorf("depot node %d not in network", sc.Depot)
	}
	return g, nil
}

// Synthesize builds a side x side grid street network and enriches every
// road with simulation attributes: uniform traffic, a weighted pavement draw
// (half good, quarter fair, quarter bad), and a 0.2% blocked chance so
// blocks stay rare enough not to seal off whole areas.
func Synthesize(spec model.SynthSpec) *Network {
	side := spec.Side
	if side < 2 {
		side = 10
	}
	spacing := spec.SpacingM
	if spacing <= 0 {
		spacing = 100
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	g := New()
	id := func(r, c int) int64 { return int64(r*side + c + 1) }
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			g.AddNode(id(r, c), float64(c)*spacing, float64(r)*spacing)
		}
	}
	pavements := []Pavement{PavementGood, PavementGood, PavementFair, PavementBad}
	enrich := func(from, to int64) {
		_ = g.AddRoad(Edge{
			From:     from,
			To:       to,
			LengthM:  spacing,
			Traffic:  rng.Float64(),
			Pavement: pavements[rng.Intn(len(pavements))],
			Blocked:  rng.Float64() < 0.002,
			MaxKph:   40,
		})
	}
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			if c+1 < side {
				enrich(id(r, c), id(r, c+1))
			}
			if r+1 < side {
				enrich(id(r, c), id(r+1, c))
			}
		}
	}
	return g
}

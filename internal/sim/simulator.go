// Package sim executes delivery runs over a road network and aggregates them
// into comparable reports. The smart mode scores orders, runs the genetic
// optimizer, and navigates with the fragility-aware cost model; the legacy,
// dfs, and bfs modes dispatch by deadline with condition-blind path oracles.
// All modes share one physical execution loop, so their reports differ only
// by routing policy.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fleetsim/internal/config"
	"fleetsim/internal/graph"
	"fleetsim/internal/metrics"
	"fleetsim/internal/model"
	"fleetsim/internal/nav"
	"fleetsim/internal/opt"
	"fleetsim/internal/scoring"
)

// Dispatch modes.
const (
	ModeSmart  = "smart"
	ModeLegacy = "legacy"
	ModeDFS    = "dfs"
	ModeBFS    = "bfs"
)

// Modes lists the valid dispatch modes.
func Modes() []string { return []string{ModeSmart, ModeLegacy, ModeDFS, ModeBFS} }

func ValidMode(mode string) bool {
	for _, m := range Modes() {
		if m == mode {
			return true
		}
	}
	return false
}

// fallbackDistanceM is scored for orders the depot cannot currently reach.
const fallbackDistanceM = 5000

// Simulator runs one scenario's order set through a chosen dispatch mode.
// It owns the orders for the duration of a run and mutates their outcome
// fields in place; construct a fresh order set per concurrent run.
type Simulator struct {
	g      *graph.Network
	nav    *nav.Navigator
	orders []*model.Order
	depot  int64
	cfg    config.Config

	// Progress, when set, receives streaming events as the run advances.
	Progress func(event string, data map[string]interface{})
}

func New(g *graph.Network, depot int64, orders []*model.Order, cfg config.Config) (*Simulator, error) {
	if _, ok := g.Node(depot); !ok {
		return nil, fmt.Errorf("sim: depot node %d not in network", depot)
	}
	for _, o := range orders {
		if _, ok := g.Node(o.NodeID); !ok {
			return nil, fmt.Errorf("sim: order %d targets unknown node %d", o.ID, o.NodeID)
		}
	}
	return &Simulator{
		g:      g,
		nav:    nav.New(g, cfg.CostModel),
		orders: orders,
		depot:  depot,
		cfg:    cfg,
	}, nil
}

// Run executes one full dispatch in the given mode. Deterministic per seed;
// a zero seed is replaced by the clock and the effective seed is reported.
// Optimizer metrics are returned for the smart mode, nil otherwise.
func (s *Simulator) Run(ctx context.Context, mode string, seed int64) (model.RunReport, *opt.Metrics, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()
	if !ValidMode(mode) {
		return model.RunReport{}, nil, fmt.Errorf("sim: unknown mode %q", mode)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.reset()

	var (
		seq        []int
		pathFn     func(from, to int64, fragile bool) []int64
		optMetrics *opt.Metrics
	)
	switch mode {
	case ModeSmart:
		if err := s.score(seed); err != nil {
			return model.RunReport{}, nil, err
		}
		sol, m := s.optimize(seed)
		seq = sol
		optMetrics = &m
		pathFn = s.nav.Path
	case ModeLegacy:
		seq = s.byDeadline()
		pathFn = func(from, to int64, _ bool) []int64 { return s.nav.ShortestPath(from, to) }
	case ModeDFS:
		seq = s.byDeadline()
		pathFn = func(from, to int64, _ bool) []int64 { return s.nav.DFS(from, to) }
	case ModeBFS:
		seq = s.byDeadline()
		pathFn = func(from, to int64, _ bool) []int64 { return s.nav.BFS(from, to) }
	}

	timeMin, distM, err := s.execute(ctx, seq, pathFn)
	if err != nil {
		return model.RunReport{}, optMetrics, err
	}
	return s.report(mode, seed, timeMin, distM), optMetrics, nil
}

func (s *Simulator) reset() {
	for _, o := range s.orders {
		o.Integrity = 100
		o.Delivered = false
		o.DeliveredAtMin = 0
		o.UnavoidableBadRoad = false
		o.FuzzyPriority = 0
		o.EstimateMin = 0
		o.RiskLevel = ""
	}
}

// score runs the annotation stages over every order: fuzzy priority from
// deadline and depot distance, then the trained delay predictor for an
// estimate and a risk label.
func (s *Simulator) score(seed int64) error {
	fuzzy := scoring.NewFuzzyPriority()
	pred := scoring.NewDelayPredictor(seed)
	pred.Train()
	for _, o := range s.orders {
		path := s.nav.Path(s.depot, o.NodeID, o.Fragile)
		distM, badM, traffic := s.measure(path)
		if distM == 0 {
			distM = fallbackDistanceM
		}
		fuzzy.Calculate(o, distM)
		if _, err := pred.Predict(o, distM, traffic, badM/distM); err != nil {
			return err
		}
	}
	s.emit("run.scored", map[string]interface{}{"orders": len(s.orders)})
	return nil
}

// measure sums a path's length and bad-pavement length and averages its
// traffic load.
func (s *Simulator) measure(path []int64) (distM, badM, traffic float64) {
	edges := 0
	for i := 0; i+1 < len(path); i++ {
		e, ok := s.g.EdgeBetween(path[i], path[i+1])
		if !ok {
			continue
		}
		distM += e.LengthM
		traffic += e.Traffic
		edges++
		if e.Pavement == graph.PavementBad {
			badM += e.LengthM
		}
	}
	if edges > 0 {
		traffic /= float64(edges)
	}
	return distM, badM, traffic
}

// optimize runs the genetic search and a 2-opt polish over the scored orders.
func (s *Simulator) optimize(seed int64) ([]int, opt.Metrics) {
	oc := s.cfg.Optimizer
	p := opt.Problem{
		Orders:         s.orders,
		Depot:          s.depot,
		CapacityKg:     s.cfg.Simulator.TruckCapacityKg,
		Nav:            s.nav,
		PopulationSize: oc.PopulationSize,
		Generations:    oc.Generations,
		StallLimit:     oc.StallLimit,
		MutationRate:   oc.MutationRate,
		TournamentK:    oc.TournamentK,
		Elite:          oc.Elite,
		Workers:        oc.Workers,
		FragilePenalty: oc.FragilePenalty,
	}
	sol, m := opt.Solve(p, seed)
	seq := opt.TwoOptImprove(p, sol.Sequence, oc.TwoOptIterations)
	s.emit("run.optimized", map[string]interface{}{
		"generations": m.Generations,
		"bestCost":    m.BestCost,
	})
	return seq, m
}

// byDeadline is the legacy dispatch order: most urgent first, id as the tie
// break.
func (s *Simulator) byDeadline() []int {
	seq := make([]int, len(s.orders))
	for i := range seq {
		seq[i] = i
	}
	sort.SliceStable(seq, func(a, b int) bool {
		oa, ob := s.orders[seq[a]], s.orders[seq[b]]
		if oa.DeadlineMin != ob.DeadlineMin {
			return oa.DeadlineMin < ob.DeadlineMin
		}
		return oa.ID < ob.ID
	})
	return seq
}

// execute drives the truck through the sequence. Orders are grouped into
// capacity-bounded load cycles; a cycle's cargo is picked up at the depot and
// rides until delivered, so fragile items take pavement damage on every bad
// edge they cross. The cost-model fragility flag follows the contamination
// rule: once a fragile order's leg has run, later legs of the same cycle stay
// fragile until the depot unload. Unreachable orders are skipped, never
// retried.
func (s *Simulator) execute(ctx context.Context, seq []int, pathFn func(from, to int64, fragile bool) []int64) (timeMin, distM float64, err error) {
	truck := NewTruck(s.cfg.Simulator.TruckCapacityKg)
	current := s.depot
	for _, cycle := range s.cycles(seq) {
		truck.UnloadAll()
		for _, idx := range cycle {
			truck.Load(s.orders[idx])
		}
		fragileRun := false
		for _, idx := range cycle {
			if err := ctx.Err(); err != nil {
				return timeMin, distM, err
			}
			o := s.orders[idx]
			legFragile := fragileRun || o.Fragile
			path := pathFn(current, o.NodeID, legFragile)
			if len(path) == 0 {
				truck.Deliver(o)
				s.emit("order.skipped", map[string]interface{}{"order": o.ID})
				continue
			}
			lt, ld, crossedBad := s.traverse(path, truck.FragileAboard())
			timeMin += lt
			distM += ld
			if crossedBad {
				o.UnavoidableBadRoad = s.nav.UnavoidableObstacle(current, o.NodeID)
			}
			current = o.NodeID
			o.Delivered = true
			o.DeliveredAtMin = timeMin
			truck.Deliver(o)
			fragileRun = legFragile
			s.emit("order.delivered", map[string]interface{}{
				"order":     o.ID,
				"atMin":     round2(timeMin),
				"integrity": round2(o.Integrity),
			})
		}
		if current != s.depot {
			if path := pathFn(current, s.depot, fragileRun); len(path) > 0 {
				lt, ld, _ := s.traverse(path, truck.FragileAboard())
				timeMin += lt
				distM += ld
				current = s.depot
			}
		}
	}
	return timeMin, distM, nil
}

// cycles splits the sequence into load cycles under the same overflow rule
// the optimizer decodes with, so the executed route matches the priced one.
func (s *Simulator) cycles(seq []int) [][]int {
	capKg := s.cfg.Simulator.TruckCapacityKg
	var out [][]int
	var cur []int
	load := 0.0
	for _, idx := range seq {
		w := s.orders[idx].WeightKg
		if load+w > capKg && load > 0 {
			out = append(out, cur)
			cur = nil
			load = 0
		}
		cur = append(cur, idx)
		load += w
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// traverse walks one path edge by edge, accumulating travel time and
// distance. Blocked edges stall the truck, bad pavement slows it and chips
// the integrity of every fragile order still aboard, and traffic divides the
// effective speed with a floor so time stays finite.
func (s *Simulator) traverse(path []int64, fragileAboard []*model.Order) (minutes, meters float64, crossedBad bool) {
	sc := s.cfg.Simulator
	for i := 0; i+1 < len(path); i++ {
		e, ok := s.g.EdgeBetween(path[i], path[i+1])
		if !ok {
			continue
		}
		if e.Blocked {
			minutes += sc.BlockStallMin
			crossedBad = true
		}
		speed := e.MaxKph
		if speed <= 0 {
			speed = sc.DefaultSpeedKph
		}
		if e.Pavement == graph.PavementBad {
			speed *= sc.BadPavementSlow
			crossedBad = true
			for _, o := range fragileAboard {
				o.Integrity -= e.LengthM / 100 * sc.IntegrityPer100m
				if o.Integrity < 0 {
					o.Integrity = 0
				}
			}
		}
		eff := speed / (1 + e.Traffic)
		if eff < sc.MinSpeedKph {
			eff = sc.MinSpeedKph
		}
		minutes += e.LengthM / 1000 / eff * 60
		meters += e.LengthM
	}
	return minutes, meters, crossedBad
}

// report rolls the mutated orders up into the run summary.
func (s *Simulator) report(mode string, seed int64, timeMin, distM float64) model.RunReport {
	rep := model.RunReport{
		Mode:       mode,
		Seed:       seed,
		DistanceKm: round2(distM / 1000),
		TimeMin:    round2(timeMin),
		FuelCost:   round2(distM / 1000 * s.cfg.Simulator.FuelCostPerKm),
	}
	integritySum := 0.0
	for _, o := range s.orders {
		if o.UnavoidableBadRoad {
			rep.Unavoidable++
		}
		if o.Integrity < 100 {
			rep.IntegrityLoss++
		}
		if !o.Delivered {
			continue
		}
		rep.Delivered++
		integritySum += o.Integrity
		if o.DeliveredAtMin <= o.DeadlineMin {
			rep.OnTime++
		}
	}
	if rep.Delivered > 0 {
		rep.OnTimeRate = round2(float64(rep.OnTime) / float64(rep.Delivered))
		rep.AvgIntegrity = round2(integritySum / float64(rep.Delivered))
	} else {
		rep.AvgIntegrity = 100
	}
	return rep
}

// Orders returns a snapshot of the order set with its current outcome
// fields, for persistence alongside the report.
func (s *Simulator) Orders() []model.Order {
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

func (s *Simulator) emit(event string, data map[string]interface{}) {
	if s.Progress != nil {
		s.Progress(event, data)
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

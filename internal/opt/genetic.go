// Package opt hosts the route optimizer: a genetic search over delivery
// permutations evaluated through the adaptive navigator's cost oracle, plus
// a 2-opt polishing pass and an in-process metrics store.
package opt

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"fleetsim/internal/metrics"
	"fleetsim/internal/model"
	"fleetsim/internal/nav"
)

const fitnessEps = 1e-6

// Problem is a read-only description of one optimization. Orders are read,
// never written, so fitness workers can share them.
type Problem struct {
	Orders     []*model.Order
	Depot      int64
	CapacityKg float64
	Nav        *nav.Navigator

	PopulationSize int
	Generations    int
	StallLimit     int     // generations without improvement before cutoff
	MutationRate   float64
	TournamentK    int
	Elite          int
	Workers        int     // parallel fitness evaluation, <=1 sequential
	FragilePenalty float64 // early-position penalty for fragile orders
}

// Solution is the best visitation order found, with its cost and fitness.
type Solution struct {
	Sequence []int
	Cost     float64
	Fitness  float64
}

// GenSnapshot records the best individual of one generation.
type GenSnapshot struct {
	Generation int     `json:"generation"`
	BestCost   float64 `json:"bestCost"`
	BestFit    float64 `json:"bestFitness"`
}

// Metrics summarizes one optimizer run.
type Metrics struct {
	Generations  int           `json:"generations"`
	Evaluations  int           `json:"evaluations"`
	Improvements int           `json:"improvements"`
	Stalled      bool          `json:"stalled"`
	BestCost     float64       `json:"bestCost"`
	Elapsed      time.Duration `json:"elapsedNs"`
	History      []GenSnapshot `json:"history"`
}

// Solve evolves a population of permutations and returns the best individual
// ever observed (elitism guarantees the best fitness never regresses across
// generations). Deterministic per seed. An empty order set yields an empty
// zero-cost route.
func Solve(p Problem, seed int64) (Solution, Metrics) {
	start := time.Now()
	m := Metrics{}
	n := len(p.Orders)
	if n == 0 {
		return Solution{Sequence: []int{}, Cost: 0, Fitness: 1 / fitnessEps}, m
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	p = p.withDefaults()

	pop := make([][]int, p.PopulationSize)
	for i := range pop {
		pop[i] = rng.Perm(n)
	}

	best := Solution{Fitness: -1}
	stall := 0
	fits := make([]float64, len(pop))
	for gen := 0; gen < p.Generations; gen++ {
		m.Generations++
		metrics.OptimizerGenerations.Inc()
		evaluateAll(p, pop, fits)
		m.Evaluations += len(pop)

		improved := false
		for i, fit := range fits {
			if fit > best.Fitness {
				best = Solution{
					Sequence: append([]int(nil), pop[i]...),
					Cost:     costFromFitness(fit),
					Fitness:  fit,
				}
				improved = true
			}
		}
		if improved {
			m.Improvements++
			stall = 0
		} else {
			stall++
		}
		m.History = append(m.History, GenSnapshot{Generation: gen + 1, BestCost: best.Cost, BestFit: best.Fitness})
		if stall >= p.StallLimit {
			m.Stalled = true
			break
		}

		// Next generation: elitism then tournament/crossover/mutation.
		order := sortedByFitness(fits)
		next := make([][]int, 0, len(pop))
		for i := 0; i < p.Elite && i < len(order); i++ {
			next = append(next, append([]int(nil), pop[order[i]]...))
		}
		for len(next) < p.PopulationSize {
			a := tournament(pop, fits, p.TournamentK, rng)
			b := tournament(pop, fits, p.TournamentK, rng)
			child := crossoverOX1(a, b, rng)
			mutate(child, p.MutationRate, rng)
			next = append(next, child)
		}
		pop = next
	}
	m.BestCost = best.Cost
	m.Elapsed = time.Since(start)
	return best, m
}

func (p Problem) withDefaults() Problem {
	if p.PopulationSize <= 0 {
		p.PopulationSize = 50
	}
	if p.Generations <= 0 {
		p.Generations = 50
	}
	if p.StallLimit <= 0 {
		p.StallLimit = p.Generations
	}
	if p.MutationRate <= 0 {
		p.MutationRate = 0.1
	}
	if p.TournamentK < 2 {
		p.TournamentK = 3
	}
	if p.Elite < 0 {
		p.Elite = 0
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}

// Evaluate scores one permutation. Total cost sums the navigator's leg costs
// over the decoded route (contaminated fragility flags included), a
// priority-weighted lateness term that pushes urgent orders to the front,
// and a position penalty that pushes fragile orders to the back. Unreachable
// legs poison the cost to +Inf and the fitness to zero; the ordering is
// suppressed by selection instead of aborting the run.
func Evaluate(p Problem, seq []int) (cost, fitness float64) {
	legs := DecodeLegs(p.Orders, p.Depot, p.CapacityKg, seq)
	total := 0.0
	elapsed := 0.0
	fragilePos := 0.0
	pos := 0
	denom := float64(len(seq) - 1)
	if denom < 1 {
		denom = 1
	}
	for _, leg := range legs {
		c := p.Nav.PathCost(leg.From, leg.To, leg.Fragile)
		if math.IsInf(c, 1) {
			return math.Inf(1), 0
		}
		total += c
		elapsed += c
		if leg.OrderIdx >= 0 {
			o := p.Orders[leg.OrderIdx]
			priority := o.FuzzyPriority
			if priority <= 0 {
				priority = 5
			}
			total += elapsed * (priority / 5)
			if o.Fragile {
				fragilePos += (1 - float64(pos)/denom) * p.FragilePenalty
			}
			pos++
		}
	}
	total += fragilePos
	return total, 1 / (total + fitnessEps)
}

func evaluateAll(p Problem, pop [][]int, fits []float64) {
	if p.Workers <= 1 || len(pop) < 2 {
		for i, seq := range pop {
			_, fits[i] = Evaluate(p, seq)
			metrics.OptimizerEvaluations.Inc()
		}
		return
	}
	// Workers share the read-only problem; each writes only its own slots.
	var wg sync.WaitGroup
	chunk := (len(pop) + p.Workers - 1) / p.Workers
	for w := 0; w < p.Workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(pop) {
			hi = len(pop)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				_, fits[i] = Evaluate(p, pop[i])
				metrics.OptimizerEvaluations.Inc()
			}
		}(lo, hi)
	}
	wg.Wait()
}

func costFromFitness(fit float64) float64 {
	if fit <= 0 {
		return math.Inf(1)
	}
	return 1/fit - fitnessEps
}

// sortedByFitness returns population indices ordered by descending fitness.
// Index order breaks ties, so the first-found individual wins.
func sortedByFitness(fits []float64) []int {
	idx := make([]int, len(fits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return fits[idx[a]] > fits[idx[b]] })
	return idx
}

func tournament(pop [][]int, fits []float64, k int, rng *rand.Rand) []int {
	best := rng.Intn(len(pop))
	for i := 1; i < k; i++ {
		c := rng.Intn(len(pop))
		if fits[c] > fits[best] {
			best = c
		}
	}
	return pop[best]
}

// crossoverOX1 is order-1 crossover: copy a random slice of parent a, then
// fill the gaps with b's genes in b's order. Preserves permutation validity.
func crossoverOX1(a, b []int, rng *rand.Rand) []int {
	n := len(a)
	if n < 2 {
		return append([]int(nil), a...)
	}
	i := rng.Intn(n)
	j := rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	child := make([]int, n)
	taken := make([]bool, n)
	for k := i; k <= j; k++ {
		child[k] = a[k]
		taken[a[k]] = true
	}
	ptr := 0
	for _, gene := range b {
		if taken[gene] {
			continue
		}
		for ptr >= i && ptr <= j {
			ptr++
		}
		child[ptr] = gene
		ptr++
	}
	return child
}

// mutate applies, with the configured probability, either a two-position
// swap or a bounded segment reversal.
func mutate(seq []int, rate float64, rng *rand.Rand) {
	n := len(seq)
	if n < 2 || rng.Float64() >= rate {
		return
	}
	if rng.Intn(2) == 0 {
		i, j := rng.Intn(n), rng.Intn(n)
		seq[i], seq[j] = seq[j], seq[i]
		return
	}
	i := rng.Intn(n)
	j := rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		seq[a], seq[b] = seq[b], seq[a]
	}
}

package opt

import "math"

// TwoOptImprove polishes a sequence with 2-opt segment reversals, accepting
// only strict cost improvements under the full fitness model. Runs at most
// iterations sweeps and stops early once a sweep finds nothing.
func TwoOptImprove(p Problem, seq []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	n := len(seq)
	if n < 3 {
		return append([]int(nil), seq...)
	}
	best := append([]int(nil), seq...)
	bestCost, _ := Evaluate(p, best)
	if math.IsInf(bestCost, 1) {
		return best
	}
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				c, _ := Evaluate(p, cand)
				if c+1e-9 < bestCost {
					best = cand
					bestCost = c
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

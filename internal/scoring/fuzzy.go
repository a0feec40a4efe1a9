// Package scoring contains the upstream order-annotation stages: a fuzzy
// priority scorer and a delay-risk predictor. Both are explicitly
// constructed components owned by the run's composition root, never hidden
// globals, so fixed-seed runs stay reproducible.
package scoring

import "fleetsim/internal/model"

// Fuzzy universe bounds. Inputs are clamped, never rejected.
const (
	maxDeadlineMin = 120
	maxDistanceM   = 5000
	fallbackScore  = 5.0
)

// FuzzyPriority scores orders on a 0..10 scale from deadline urgency and
// depot distance. Three triangular membership sets per input, Mamdani-style
// rule firing with a weighted-centroid defuzzification:
//
//	short deadline OR close distance  -> high priority
//	medium deadline AND medium dist   -> medium priority
//	long deadline AND far distance    -> low priority
type FuzzyPriority struct {
	// Output set centroids on the 0..10 priority universe.
	lowC, midC, highC float64
}

func NewFuzzyPriority() *FuzzyPriority {
	return &FuzzyPriority{lowC: 10.0 / 6, midC: 5, highC: 50.0 / 6}
}

// Calculate writes FuzzyPriority onto the order and returns the score.
// distanceM is the depot-to-target path distance in meters.
func (f *FuzzyPriority) Calculate(o *model.Order, distanceM float64) float64 {
	d := clamp(o.DeadlineMin, 0, maxDeadlineMin) / maxDeadlineMin
	x := clamp(distanceM, 0, maxDistanceM) / maxDistanceM

	short, medD, long := memberships(d)
	close_, medX, far := memberships(x)

	high := max2(short, close_)
	med := min2(medD, medX)
	low := min2(long, far)

	sum := high + med + low
	score := fallbackScore
	if sum > 0 {
		score = (high*f.highC + med*f.midC + low*f.lowC) / sum
	}
	o.FuzzyPriority = score
	return score
}

// memberships evaluates the three overlapping triangles low/mid/high on a
// normalized [0,1] universe.
func memberships(v float64) (low, mid, high float64) {
	low = tri(v, 0, 0, 0.5)
	mid = tri(v, 0, 0.5, 1)
	high = tri(v, 0.5, 1, 1)
	return
}

// tri is a triangular membership function with corners a <= b <= c.
func tri(v, a, b, c float64) float64 {
	switch {
	case v < a || v > c:
		return 0
	case v == b:
		return 1
	case v < b:
		if b == a {
			return 1
		}
		return (v - a) / (b - a)
	default:
		if c == b {
			return 1
		}
		return (c - v) / (c - b)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

package scatterfit

import (
	"hash/fnv"
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// clamp limits v to the inclusive range [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// newRand returns a seeded random number generator. Every stochastic
// component takes its own generator so independent runs stay reproducible.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// deriveSeed mixes a base seed with a name so that per-family generators
// are decorrelated but still fully determined by the run seed.
func deriveSeed(seed int64, name string) int64 {
	h := fnv.New64a()

	// Write never fails on a hash.
	_, _ = h.Write([]byte(name))

	return seed ^ int64(h.Sum64())
}

// allFinite reports whether every value in the slice is a finite number.
func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// residuals returns yTrue[i] - yPred[i] for each i. Lengths must match;
// callers validate before calling.
func residuals(yTrue, yPred []float64) []float64 {
	res := make([]float64, len(yTrue))
	for i := range yTrue {
		res[i] = yTrue[i] - yPred[i]
	}

	return res
}

// columnMatrix wraps a scalar series as a single-column feature matrix.
func columnMatrix(x []float64) [][]float64 {
	m := make([][]float64, len(x))
	for i, v := range x {
		m[i] = []float64{v}
	}

	return m
}

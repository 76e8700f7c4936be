package syncer

import (
	"math"
)

// FFTSize returns the smallest power of two that fits the full linear
// correlation of signals of the given lengths without wrap-around.
func FFTSize(n1, n2 int) int {
	n := 1
	for n < n1+n2-1 {
		n <<= 1
	}
	return n
}

// CorrelationLags returns the lags of a full correlation of signals of
// the given lengths: -(n1-1) ... n2-1.
func CorrelationLags(n1, n2 int) []int {
	if n1 == 0 || n2 == 0 {
		return []int{}
	}
	lags := make([]int, n1+n2-1)
	for i := range lags {
		lags[i] = i - (n1 - 1)
	}
	return lags
}

// Linearize picks the full linear correlation out of a circular one of
// size FFTSize(n1, n2) (where negative lags are wrapped to the end) and
// scales it.
func Linearize(circular []complex128, n1, n2 int, scale float64) []float64 {
	n := len(circular)
	corr := make([]float64, n1+n2-1)
	for i := range corr {
		k := i - (n1 - 1)
		if k < 0 {
			k += n
		}
		corr[i] = real(circular[k]) * scale
	}
	return corr
}

// peak returns the index of the maximal value within [from, to).
// On ties the first index wins.
func peak(corr []float64, from, to int) int {
	best := -1
	bestVal := math.Inf(-1)
	for i := from; i < to; i++ {
		if corr[i] > bestVal {
			best = i
			bestVal = corr[i]
		}
	}
	return best
}

// pickPeak selects the lag of the correlation maximum, taking the search
// bound into account. With tolerance == 0 the bound is strict; with
// tolerance > 0 the best in-bounds lag is accepted only if its
// correlation is within the relative tolerance of the global maximum.
// inBounds is false if the returned index violates the bound.
func pickPeak(
	corr []float64,
	lags []int,
	bound *Bound,
	tolerance float64,
) (idx int, inBounds bool) {
	best := peak(corr, 0, len(corr))
	if bound == nil || best < 0 || bound.Contains(lags[best]) {
		return best, true
	}

	// lags are consecutive, so the window maps to an index range
	from := max(0, bound.Min-lags[0])
	to := min(len(corr), bound.Max-lags[0])
	if from >= to {
		return best, false
	}
	guess := peak(corr, from, to)
	if tolerance == 0 {
		return guess, true
	}
	if math.Abs(corr[best]-corr[guess]) <= tolerance*math.Abs(corr[best]) {
		return guess, true
	}
	return best, false
}

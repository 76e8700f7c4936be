package interpolation

import (
	"gonum.org/v1/gonum/floats"
)

// Dropout is a run of digital silence inside a signal.
type Dropout struct {
	Start int
	Len   int
}

// FindDropouts returns the runs of exact zeros that are at least minLen
// samples long and are enclosed by non-zero samples on both sides.
// Leading and trailing silence is not a dropout.
func FindDropouts(samples []float64, minLen int) []Dropout {
	if minLen <= 0 {
		return nil
	}
	var result []Dropout
	start := -1
	for i, v := range samples {
		switch {
		case v == 0 && start < 0:
			start = i
		case v != 0 && start >= 0:
			if start > 0 && i-start >= minLen {
				result = append(result, Dropout{Start: start, Len: i - start})
			}
			start = -1
		}
	}
	return result
}

// RepairDropouts returns a copy of the samples where every dropout found
// by FindDropouts is filled by the interpolator. The context handed to
// the interpolator never crosses a neighbouring dropout.
func RepairDropouts(
	samples []float64,
	minLen int,
	contextLen int,
	interp Interpolator,
) ([]float64, []Dropout) {
	result := make([]float64, len(samples))
	copy(result, samples)

	dropouts := FindDropouts(samples, minLen)
	for idx, d := range dropouts {
		beforeStart := max(0, d.Start-contextLen)
		if idx > 0 {
			prev := dropouts[idx-1]
			beforeStart = max(beforeStart, prev.Start+prev.Len)
		}
		afterEnd := min(len(samples), d.Start+d.Len+contextLen)
		if idx+1 < len(dropouts) {
			afterEnd = min(afterEnd, dropouts[idx+1].Start)
		}

		fill := interp.Interpolate(
			samples[beforeStart:d.Start],
			samples[d.Start+d.Len:afterEnd],
			d.Len,
		)
		copy(result[d.Start:d.Start+d.Len], fill)
	}
	return result, dropouts
}

// DropoutShare returns the fraction of samples that belong to dropouts.
func DropoutShare(samples []float64, dropouts []Dropout) float64 {
	if len(samples) == 0 {
		return 0
	}
	lens := make([]float64, len(dropouts))
	for i, d := range dropouts {
		lens[i] = float64(d.Len)
	}
	return floats.Sum(lens) / float64(len(samples))
}

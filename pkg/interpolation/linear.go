package interpolation

type linear struct{}

// NewLinear returns an interpolator that draws a straight line between
// the samples enclosing the gap.
func NewLinear() Interpolator {
	return linear{}
}

func (linear) Interpolate(before, after []float64, gapLen int) []float64 {
	result := make([]float64, gapLen)
	if len(before) == 0 || len(after) == 0 {
		return result
	}
	v0 := before[len(before)-1]
	v1 := after[0]
	for i := range result {
		t := float64(i+1) / float64(gapLen+1)
		result[i] = (1-t)*v0 + t*v1
	}
	return result
}

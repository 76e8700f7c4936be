package interpolation

// Interpolator synthesizes 'gapLen' samples that continue 'before'
// and lead into 'after'.
type Interpolator interface {
	Interpolate(before, after []float64, gapLen int) []float64
}

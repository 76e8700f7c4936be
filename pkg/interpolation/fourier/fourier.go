// Package fourier fills gaps in a signal by extending the tonal content
// found on both sides of the gap.
package fourier

import (
	"math"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/avsync/pkg/interpolation"
)

const (
	// DefaultMaxWindow caps the amount of context analyzed on each side.
	DefaultMaxWindow = 1024

	// DefaultSensitivity is how many times a spectral peak must exceed
	// the mean magnitude to be treated as a tone rather than noise.
	DefaultSensitivity = 2.5

	minContext = 4
)

type Interpolator struct {
	MaxWindow   int
	Sensitivity float64
}

var _ interpolation.Interpolator = (*Interpolator)(nil)

func New() interpolation.Interpolator {
	return &Interpolator{
		MaxWindow:   DefaultMaxWindow,
		Sensitivity: DefaultSensitivity,
	}
}

// partial is one sinusoid of the model: the bin index within the
// analysis window, its amplitude and its phase at the window start.
type partial struct {
	bin       int
	amplitude float64
	phase     float64
}

// toneModel is a sum of sinusoids (plus DC) fitted to an analysis window
// of size n; it can be evaluated at any position, including outside
// of the window.
type toneModel struct {
	n        int
	dc       float64
	partials []partial
}

func analyze(window []float64, sensitivity float64) (toneModel, bool) {
	n := len(window)
	spectrum := make([]complex128, n)
	for i, v := range window {
		spectrum[i] = complex(v, 0)
	}
	if err := fourier.Forward(spectrum); err != nil {
		return toneModel{}, false
	}

	magnitudes := make([]float64, n)
	var mean float64
	for i, c := range spectrum {
		magnitudes[i] = cmplx.Abs(c)
		mean += magnitudes[i]
	}
	threshold := mean / float64(n) * sensitivity

	m := toneModel{
		n:  n,
		dc: real(spectrum[0]) / float64(n),
	}
	for bin := 1; bin < n/2; bin++ {
		mag := magnitudes[bin]
		if mag <= threshold || mag <= magnitudes[bin-1] || mag <= magnitudes[bin+1] {
			continue
		}
		m.partials = append(m.partials, partial{
			bin: bin,
			// one-sided amplitude: the energy is split between bin and n-bin
			amplitude: 2 * mag / float64(n),
			phase:     cmplx.Phase(spectrum[bin]),
		})
	}
	return m, true
}

func (m toneModel) at(pos float64) float64 {
	v := m.dc
	for _, p := range m.partials {
		v += p.amplitude * math.Cos(2*math.Pi*float64(p.bin)*pos/float64(m.n)+p.phase)
	}
	return v
}

// Interpolate fits a tone model to the end of 'before' and another one
// to the start of 'after', extends both into the gap and crossfades
// them with a smoothstep curve. The residual mismatch at the gap edges
// is distributed linearly along the same curve so the result connects
// to both neighbours without a step.
func (i *Interpolator) Interpolate(before, after []float64, gapLen int) []float64 {
	result := make([]float64, gapLen)
	if gapLen == 0 || len(before) < minContext || len(after) < minContext {
		return result
	}

	n := powerOfTwoFloor(min(len(before), len(after), i.MaxWindow))
	head := before[len(before)-n:]
	tail := after[:n]

	forwardModel, ok := analyze(head, i.Sensitivity)
	if !ok {
		return result
	}
	backwardModel, ok := analyze(tail, i.Sensitivity)
	if !ok {
		return result
	}

	forward := make([]float64, gapLen)
	backward := make([]float64, gapLen)
	for k := range result {
		forward[k] = forwardModel.at(float64(n + k))
		backward[k] = backwardModel.at(float64(k - gapLen))
	}

	startMismatch := forward[0] - head[n-1]
	endMismatch := backward[gapLen-1] - tail[0]
	for k := range result {
		t := float64(k+1) / float64(gapLen+1)
		w := t * t * (3 - 2*t)
		result[k] = (1-w)*(forward[k]-startMismatch) + w*(backward[k]-endMismatch)
	}
	return result
}

func powerOfTwoFloor(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// Package fft implements the plain cross-correlation of two signals
// computed in the frequency domain.
package fft

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/syncer"
	"gonum.org/v1/gonum/floats"
)

type Correlator struct{}

var _ syncer.Correlator = (*Correlator)(nil)

func New() *Correlator {
	return &Correlator{}
}

// Correlate returns the cross-correlation normalized by the geometric
// mean of the signal energies, so identical signals peak at 1.
func (c *Correlator) Correlate(
	ctx context.Context,
	ref, comp []float64,
	_ audio.SampleRate,
) ([]float64, []int, error) {
	n1, n2 := len(ref), len(comp)
	if n1 == 0 || n2 == 0 {
		return nil, nil, fmt.Errorf("cannot correlate empty signals: %d and %d samples", n1, n2)
	}

	circular, err := circularCorrelation(ctx, ref, comp, syncer.FFTSize(n1, n2))
	if err != nil {
		return nil, nil, err
	}

	scale := 1.0
	if energy := math.Sqrt(floats.Dot(ref, ref) * floats.Dot(comp, comp)); energy > 0 {
		scale = 1 / energy
	}
	return syncer.Linearize(circular, n1, n2, scale), syncer.CorrelationLags(n1, n2), nil
}

func circularCorrelation(
	ctx context.Context,
	ref, comp []float64,
	n int,
) ([]complex128, error) {
	fref := make([]complex128, n)
	fcomp := make([]complex128, n)
	for i, v := range ref {
		fref[i] = complex(v, 0)
	}
	for i, v := range comp {
		fcomp[i] = complex(v, 0)
	}

	ffref := fft.FFT(fref)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	ffcomp := fft.FFT(fcomp)

	for i := range ffcomp {
		ffcomp[i] *= cmplx.Conj(ffref[i])
	}
	return fft.IFFT(ffcomp), nil
}

// Package gccphat implements the Generalized Cross-Correlation with Phase
// Transform (GCC-PHAT).
//
// The cross-power spectrum is normalized to unit magnitude before the
// inverse transform, so only the phase (which carries the delay) is
// compared. This makes the peak sharp and robust against differences
// in volume and frequency response between the recording devices.
package gccphat

import (
	"context"
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/syncer"
)

const (
	DefaultMinFreq = 100
	DefaultMaxFreq = 12000

	// bins weaker than this fraction of the strongest bin are not
	// whitened (60dB down)
	whiteningThreshold = 0.001
)

type Correlator struct {
	MinFreq float64
	MaxFreq float64
}

var _ syncer.Correlator = (*Correlator)(nil)

// New returns a GCC-PHAT correlator limited to the band which carries
// most of the informative audio, filtering out low-frequency rumble
// and high-frequency digital noise.
func New() *Correlator {
	return &Correlator{
		MinFreq: DefaultMinFreq,
		MaxFreq: DefaultMaxFreq,
	}
}

func (c *Correlator) Correlate(
	ctx context.Context,
	ref, comp []float64,
	sampleRate audio.SampleRate,
) ([]float64, []int, error) {
	if sampleRate == 0 {
		return nil, nil, fmt.Errorf("sample rate is required for band limiting")
	}
	n1, n2 := len(ref), len(comp)
	if n1 == 0 || n2 == 0 {
		return nil, nil, fmt.Errorf("cannot correlate empty signals: %d and %d samples", n1, n2)
	}

	n := syncer.FFTSize(n1, n2)
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
		return nil, nil, ctx.Err()
	default:
	}
	ffcomp := fft.FFT(fcomp)

	spectrum, activeBins := c.whiten(ffref, ffcomp, float64(sampleRate))
	lags := syncer.CorrelationLags(n1, n2)
	if activeBins == 0 {
		return make([]float64, len(lags)), lags, nil
	}

	// With activeBins unit-magnitude bins the ideal peak after the
	// (1/N-scaled) inverse transform is activeBins/N.
	scale := float64(n) / float64(activeBins)
	return syncer.Linearize(fft.IFFT(spectrum), n1, n2, scale), lags, nil
}

// whiten computes the band-limited cross-power spectrum conj(ref)*comp
// normalized to unit magnitude.
func (c *Correlator) whiten(
	fref, fcomp []complex128,
	sampleRate float64,
) ([]complex128, int) {
	n := len(fref)

	binMin := 0
	binMax := n / 2
	if c.MinFreq > 0 {
		binMin = int(c.MinFreq * float64(n) / sampleRate)
	}
	if c.MaxFreq > 0 && c.MaxFreq < sampleRate/2 {
		binMax = int(c.MaxFreq * float64(n) / sampleRate)
	}

	res := make([]complex128, n)
	maxMag := 0.0
	for i := range res {
		res[i] = fcomp[i] * cmplx.Conj(fref[i])
		if mag := cmplx.Abs(res[i]); mag > maxMag {
			maxMag = mag
		}
	}
	threshold := maxMag * whiteningThreshold

	activeBins := 0
	for i := range res {
		freqIdx := i
		if i > n/2 {
			freqIdx = n - i
		}
		mag := cmplx.Abs(res[i])
		if freqIdx < binMin || freqIdx > binMax || mag <= threshold || mag <= 1e-12 {
			res[i] = 0
			continue
		}
		res[i] /= complex(mag, 0)
		activeBins++
	}
	return res, activeBins
}

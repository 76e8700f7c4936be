package syncer

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsync/pkg/audio"
)

// Syncer estimates how the tracks are shifted relative to each other.
type Syncer interface {
	// EstimateLags returns one lag per track. The first track is the
	// base; its lag is always zero. A positive lag means that the
	// shared content appears that many samples later in the track than
	// in the base track, so the track has to be trimmed from its front
	// (or the others padded) to line up.
	EstimateLags(ctx context.Context, tracks []audio.Track) (*Result, error)
}

// Correlator computes the full cross-correlation of two signals.
//
// The result is returned together with the lag of every entry, lags
// ascending from -(len(ref)-1) to len(comp)-1, where the value at lag k
// measures the similarity of ref[n] and comp[n+k]. Values are
// normalized so that a perfect match is close to 1.
type Correlator interface {
	Correlate(
		ctx context.Context,
		ref, comp []float64,
		sampleRate audio.SampleRate,
	) (corr []float64, lags []int, err error)
}

// Bound is a half-open window [Min, Max) of lags.
type Bound struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (b Bound) Contains(lag int) bool {
	return lag >= b.Min && lag < b.Max
}

func (b Bound) Validate() error {
	if b.Max <= b.Min {
		return fmt.Errorf("empty lag window [%d, %d)", b.Min, b.Max)
	}
	return nil
}

// PairBound derives the window of the lag of track j relative to track
// i from the windows of both tracks relative to a common origin.
func PairBound(i, j *Bound) *Bound {
	if i == nil || j == nil {
		return nil
	}
	return &Bound{
		Min: j.Min - (i.Max - 1),
		Max: j.Max - i.Min,
	}
}

// Estimate is the lag found for a single track.
type Estimate struct {
	Lag int
	// Correlation is the normalized correlation value at the lag.
	Correlation float64
	// Reliable is false if the peak was outside of the search bounds,
	// beyond the maximal allowed lag or not positive.
	Reliable bool
}

type Result struct {
	SampleRate audio.SampleRate
	Estimates  []Estimate
}

func (r *Result) Lags() []int {
	lags := make([]int, len(r.Estimates))
	for i, e := range r.Estimates {
		lags[i] = e.Lag
	}
	return lags
}

// Offsets returns the lags in seconds.
func (r *Result) Offsets() []float64 {
	offsets := make([]float64, len(r.Estimates))
	for i, e := range r.Estimates {
		offsets[i] = r.SampleRate.Seconds(e.Lag)
	}
	return offsets
}

// Unreliable returns the indexes of tracks with an unreliable estimate.
func (r *Result) Unreliable() []int {
	var result []int
	for i, e := range r.Estimates {
		if !e.Reliable {
			result = append(result, i)
		}
	}
	return result
}

package syncer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

// directCorrelator computes the correlation by definition; it is slow
// but obviously correct, which is what the estimator tests need.
type directCorrelator struct{}

func (directCorrelator) Correlate(
	ctx context.Context,
	ref, comp []float64,
	_ audio.SampleRate,
) ([]float64, []int, error) {
	lags := CorrelationLags(len(ref), len(comp))
	corr := make([]float64, len(lags))
	for i, k := range lags {
		for n := range ref {
			if m := n + k; m >= 0 && m < len(comp) {
				corr[i] += ref[n] * comp[m]
			}
		}
	}
	return corr, lags, nil
}

// noise returns a deterministic pseudo-random signal without repetitions.
func noise(n int, seed uint32) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = float64(int32(state)) / math.MaxInt32
	}
	return out
}

func delayed(signal []float64, k int) []float64 {
	return append(make([]float64, k), signal...)
}

func tracksOf(sampleRate audio.SampleRate, signals ...[]float64) []audio.Track {
	tracks := make([]audio.Track, len(signals))
	for i, s := range signals {
		tracks[i] = audio.NewTrack("", sampleRate, s)
	}
	return tracks
}

func TestEstimateLags_SignConvention(t *testing.T) {
	a := noise(300, 1)
	for _, k := range []int{0, 1, 37, 150} {
		result, err := NewEstimator(directCorrelator{}, Params{}).EstimateLags(context.Background(), tracksOf(1000, a, delayed(a, k)))
		require.NoError(t, err)
		assert.Equal(t, []int{0, k}, result.Lags(), "delay %d", k)
		assert.True(t, result.Estimates[1].Reliable)
	}

	// and the other way around: the base track is the delayed one
	result, err := NewEstimator(directCorrelator{}, Params{}).EstimateLags(context.Background(), tracksOf(1000, delayed(a, 25), a))
	require.NoError(t, err)
	assert.Equal(t, []int{0, -25}, result.Lags())
}

func TestEstimateLags_Errors(t *testing.T) {
	ctx := context.Background()
	a := noise(10, 2)

	_, err := NewEstimator(directCorrelator{}, Params{}).EstimateLags(ctx, tracksOf(1000, a))
	var target *audio.InsufficientTracksError
	require.True(t, errors.As(err, &target))

	tracks := tracksOf(1000, a, a)
	tracks[1].SampleRate = 2000
	_, err = NewEstimator(directCorrelator{}, Params{}).EstimateLags(ctx, tracks)
	require.Error(t, err)

	_, err = NewEstimator(directCorrelator{}, Params{Bounds: []*Bound{nil}}).EstimateLags(ctx, tracksOf(1000, a, a))
	require.Error(t, err)

	_, err = NewEstimator(directCorrelator{}, Params{Strategy: "magic"}).EstimateLags(ctx, tracksOf(1000, a, a))
	require.Error(t, err)

	_, err = NewEstimator(directCorrelator{}, Params{}).EstimateLags(ctx, tracksOf(1000, a, nil))
	require.Error(t, err)

	uneven := audio.Track{Name: "stereo", SampleRate: 1000, Samples: [][]float64{a, a[:5]}}
	_, err = NewEstimator(directCorrelator{}, Params{}).EstimateLags(ctx, []audio.Track{tracksOf(1000, a)[0], uneven})
	var mismatch *audio.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch), "%v", err)
	assert.Equal(t, 1, mismatch.Index)
}

func TestEstimateLags_MaxLag(t *testing.T) {
	a := noise(300, 3)
	e := NewEstimator(directCorrelator{}, Params{MaxLag: 50 * time.Millisecond})
	result, err := e.EstimateLags(context.Background(), tracksOf(1000, a, delayed(a, 40), delayed(a, 60)))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 40, 60}, result.Lags())
	assert.Equal(t, []int{2}, result.Unreliable())
}

func TestEstimateLags_Bounds(t *testing.T) {
	// the comparison track contains the base content twice, at 30 and
	// at 200; the bounds select the second occurrence
	a := noise(100, 4)
	comp := make([]float64, 400)
	copy(comp[30:], a)
	copy(comp[200:], a)

	unbounded, err := NewEstimator(directCorrelator{}, Params{}).EstimateLags(context.Background(), tracksOf(1000, a, comp))
	require.NoError(t, err)
	assert.Equal(t, 30, unbounded.Lags()[1])

	bounded, err := NewEstimator(directCorrelator{}, Params{
		Bounds: []*Bound{nil, {Min: 150, Max: 250}},
	}).EstimateLags(context.Background(), tracksOf(1000, a, comp))
	require.NoError(t, err)
	assert.Equal(t, 200, bounded.Lags()[1])
	assert.True(t, bounded.Estimates[1].Reliable)
}

func TestPickPeak(t *testing.T) {
	lags := []int{-2, -1, 0, 1, 2}

	t.Run("tie_goes_to_the_first_lag", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 3, 3, 2, 3}, lags, nil, 0)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("strict_bound", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 5, 3, 4, 2}, lags, &Bound{Min: 0, Max: 3}, 0)
		assert.True(t, ok)
		assert.Equal(t, 1, lags[idx])
	})

	t.Run("global_peak_in_bound", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 5, 3, 4, 2}, lags, &Bound{Min: -5, Max: 5}, 0)
		assert.True(t, ok)
		assert.Equal(t, -1, lags[idx])
	})

	t.Run("soft_bound_accepted", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 5, 3, 4, 2}, lags, &Bound{Min: 0, Max: 3}, 0.25)
		assert.True(t, ok)
		assert.Equal(t, 1, lags[idx])
	})

	t.Run("soft_bound_rejected", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 5, 3, 4, 2}, lags, &Bound{Min: 0, Max: 3}, 0.1)
		assert.False(t, ok)
		assert.Equal(t, -1, lags[idx])
	})

	t.Run("bound_out_of_range", func(t *testing.T) {
		idx, ok := pickPeak([]float64{1, 5, 3, 4, 2}, lags, &Bound{Min: 10, Max: 20}, 0)
		assert.False(t, ok)
		assert.Equal(t, -1, lags[idx])
	})
}

func TestPairBound(t *testing.T) {
	assert.Nil(t, PairBound(nil, &Bound{Min: 0, Max: 1}))
	assert.Equal(t, &Bound{Min: 1, Max: 40001}, PairBound(&Bound{Min: 0, Max: 1}, &Bound{Min: 1, Max: 40001}))

	// every combination of lags from both windows must be inside
	bi, bj := &Bound{Min: -3, Max: 2}, &Bound{Min: 5, Max: 9}
	pb := PairBound(bi, bj)
	for li := bi.Min; li < bi.Max; li++ {
		for lj := bj.Min; lj < bj.Max; lj++ {
			assert.True(t, pb.Contains(lj-li))
		}
	}
	assert.False(t, pb.Contains(bj.Min-(bi.Max-1)-1))
	assert.False(t, pb.Contains(bj.Max-bi.Min))
}

func TestEstimateLags_Pairwise(t *testing.T) {
	a := noise(400, 5)
	tracks := tracksOf(1000, a, delayed(a, 20), delayed(a, 50), a[10:])

	for _, strategy := range []Strategy{StrategyReference, StrategyPairwise} {
		t.Run(strategy.String(), func(t *testing.T) {
			result, err := NewEstimator(directCorrelator{}, Params{Strategy: strategy}).EstimateLags(context.Background(), tracks)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 20, 50, -10}, result.Lags())
		})
	}
}

func TestSpanLags(t *testing.T) {
	pairs := [][]Estimate{
		{{}, {Lag: 10, Correlation: 0.9, Reliable: true}, {Lag: 999, Correlation: 0.1, Reliable: true}},
		{{Lag: -10, Correlation: 0.9, Reliable: true}, {}, {Lag: 5, Correlation: 0.8, Reliable: true}},
		{{Lag: -999, Correlation: 0.1, Reliable: true}, {Lag: -5, Correlation: 0.8, Reliable: true}, {}},
	}
	result := spanLags(pairs)
	assert.Equal(t, 0, result[0].Lag)
	assert.Equal(t, 10, result[1].Lag)
	assert.Equal(t, 15, result[2].Lag)
	assert.Equal(t, 0.8, result[2].Correlation)
}

func TestStrategy_Set(t *testing.T) {
	var s Strategy
	require.NoError(t, s.Set("pairwise"))
	assert.Equal(t, StrategyPairwise, s)
	require.Error(t, s.Set("unknown"))
}

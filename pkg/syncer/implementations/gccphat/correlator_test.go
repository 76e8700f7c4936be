package gccphat

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/syncer"
)

func estimate(t *testing.T, ref, comp []float64) syncer.Estimate {
	e := syncer.NewEstimator(New(), syncer.Params{})
	result, err := e.EstimateLags(context.Background(), []audio.Track{
		audio.NewTrack("ref", 44100, ref),
		audio.NewTrack("comp", 44100, comp),
	})
	require.NoError(t, err)
	require.Len(t, result.Estimates, 2)
	return result.Estimates[1]
}

func TestCorrelator(t *testing.T) {
	t.Run("ahead by 10", func(t *testing.T) {
		ref := make([]float64, 1000)
		ref[500] = 1.0

		comp := make([]float64, 1000)
		comp[490] = 1.0 // the event comes 10 samples earlier in comp

		est := estimate(t, ref, comp)
		assert.Equal(t, -10, est.Lag)
		assert.Greater(t, est.Correlation, 0.4)
		assert.True(t, est.Reliable)
	})

	t.Run("delayed by 10", func(t *testing.T) {
		ref := make([]float64, 1000)
		ref[500] = 1.0

		comp := make([]float64, 1000)
		comp[510] = 1.0

		est := estimate(t, ref, comp)
		assert.Equal(t, 10, est.Lag)
		assert.Greater(t, est.Correlation, 0.4)
	})

	t.Run("no shift", func(t *testing.T) {
		ref := make([]float64, 1000)
		ref[500] = 1.0

		comp := make([]float64, 1000)
		comp[500] = 1.0

		est := estimate(t, ref, comp)
		assert.Equal(t, 0, est.Lag)
		assert.Greater(t, est.Correlation, 0.4)
	})

	t.Run("complex signal ahead by 5", func(t *testing.T) {
		ref := make([]float64, 2000)
		for i := range ref {
			ref[i] = math.Sin(float64(i) * 0.1)
		}

		comp := make([]float64, 2000)
		copy(comp, ref[5:]) // comp[0] = ref[5]

		est := estimate(t, ref, comp)
		assert.Equal(t, -5, est.Lag)
	})

	t.Run("silence", func(t *testing.T) {
		corr, lags, err := New().Correlate(context.Background(), make([]float64, 100), make([]float64, 100), 44100)
		require.NoError(t, err)
		assert.Len(t, lags, 199)
		assert.Equal(t, make([]float64, 199), corr)
	})

	t.Run("no sample rate", func(t *testing.T) {
		_, _, err := New().Correlate(context.Background(), []float64{1}, []float64{1}, 0)
		require.Error(t, err)
	})
}

func BenchmarkCorrelator(b *testing.B) {
	c := New()
	ctx := context.Background()

	sizes := []int{1000, 10000, 100000}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("size-%d", n), func(b *testing.B) {
			ref := make([]float64, n)
			for i := range ref {
				ref[i] = math.Sin(float64(i) * 0.1)
			}
			comp := make([]float64, n)
			copy(comp, ref[n/10:])

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _, err := c.Correlate(ctx, ref, comp, 44100)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

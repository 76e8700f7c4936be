package syncer

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsync/pkg/audio"
)

// estimatePairwise correlates every pair of tracks, builds the spanning
// tree of the strongest correlations rooted at the base track and
// accumulates the pair lags along the tree. Every track thus gets its
// lag through the chain of tracks it matches best.
func (e *Estimator) estimatePairwise(
	ctx context.Context,
	signals [][]float64,
	sampleRate audio.SampleRate,
) ([]Estimate, error) {
	n := len(signals)
	pairs := make([][]Estimate, n)
	for i := range pairs {
		pairs[i] = make([]Estimate, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			est, err := e.pairEstimate(ctx, signals[i], signals[j], sampleRate, PairBound(e.bound(i), e.bound(j)))
			if err != nil {
				return nil, fmt.Errorf("unable to correlate tracks #%d and #%d: %w", i, j, err)
			}
			pairs[i][j] = est
			pairs[j][i] = Estimate{
				Lag:         -est.Lag,
				Correlation: est.Correlation,
				Reliable:    est.Reliable,
			}
		}
	}
	return spanLags(pairs), nil
}

// spanLags grows a maximum spanning tree from track 0 (Prim's algorithm)
// over the pair correlations. pairs[i][j].Lag is the lag of j relative
// to i. Ties go to the lowest track indexes.
func spanLags(pairs [][]Estimate) []Estimate {
	n := len(pairs)
	result := make([]Estimate, n)
	inTree := make([]bool, n)
	inTree[0] = true
	result[0] = Estimate{Lag: 0, Correlation: 1, Reliable: true}

	for added := 1; added < n; added++ {
		from, to := -1, -1
		for u := 0; u < n; u++ {
			if !inTree[u] {
				continue
			}
			for v := 0; v < n; v++ {
				if inTree[v] {
					continue
				}
				if from < 0 || pairs[u][v].Correlation > pairs[from][to].Correlation {
					from, to = u, v
				}
			}
		}
		edge := pairs[from][to]
		result[to] = Estimate{
			Lag:         result[from].Lag + edge.Lag,
			Correlation: edge.Correlation,
			Reliable:    result[from].Reliable && edge.Reliable,
		}
		inTree[to] = true
	}
	return result
}

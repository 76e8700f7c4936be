package syncer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

type Strategy string

const (
	// StrategyReference correlates every track against the base track.
	StrategyReference = Strategy("reference")

	// StrategyPairwise correlates every pair of tracks and chains the
	// lags along the best correlated pairs; it helps when some tracks
	// barely overlap with the base track but do overlap with others.
	StrategyPairwise = Strategy("pairwise")
)

func (s Strategy) String() string {
	return string(s)
}

func (s *Strategy) Set(v string) error {
	switch Strategy(v) {
	case StrategyReference, StrategyPairwise:
		*s = Strategy(v)
		return nil
	}
	return fmt.Errorf("unknown strategy %q, expected %q or %q", v, StrategyReference, StrategyPairwise)
}

func (s *Strategy) Type() string {
	return "strategy"
}

func (s *Strategy) UnmarshalText(b []byte) error {
	return s.Set(string(b))
}

type Params struct {
	Strategy Strategy

	// Bounds are optional per-track lag windows relative to a common
	// origin; a nil entry means "unbounded". A nil window of the base
	// track is treated as [0, 1).
	Bounds []*Bound

	// BoundsTolerance: 0 means the bounds are strict, a positive value
	// makes them a preference (see pickPeak).
	BoundsTolerance float64

	// MaxLag marks lags larger than this (in absolute value) as
	// unreliable. Zero disables the check.
	MaxLag time.Duration
}

func (p Params) Validate(numTracks int) error {
	switch p.Strategy {
	case StrategyReference, StrategyPairwise:
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	if len(p.Bounds) != 0 && len(p.Bounds) != numTracks {
		return fmt.Errorf("got %d bounds for %d tracks", len(p.Bounds), numTracks)
	}
	for i, b := range p.Bounds {
		if b == nil {
			continue
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bound #%d: %w", i, err)
		}
	}
	if p.BoundsTolerance < 0 {
		return fmt.Errorf("bounds tolerance must not be negative: %v", p.BoundsTolerance)
	}
	if p.MaxLag < 0 {
		return fmt.Errorf("max lag must not be negative: %v", p.MaxLag)
	}
	return nil
}

type Estimator struct {
	Correlator Correlator
	Params     Params
}

var _ Syncer = (*Estimator)(nil)

func NewEstimator(correlator Correlator, params Params) *Estimator {
	if params.Strategy == "" {
		params.Strategy = StrategyReference
	}
	return &Estimator{
		Correlator: correlator,
		Params:     params,
	}
}

func (e *Estimator) EstimateLags(
	ctx context.Context,
	tracks []audio.Track,
) (_ret *Result, _err error) {
	logger.Tracef(ctx, "EstimateLags(ctx, %d tracks)", len(tracks))
	defer func() { logger.Tracef(ctx, "/EstimateLags(ctx, %d tracks): %v", len(tracks), _err) }()

	if err := audio.CheckTrackCount("lag estimation", 2, len(tracks)); err != nil {
		return nil, err
	}
	if err := e.Params.Validate(len(tracks)); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	sampleRate := tracks[0].SampleRate
	signals := make([][]float64, len(tracks))
	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("track #%d is invalid: %w", i, err)
		}
		if t.SampleRate != sampleRate {
			return nil, fmt.Errorf("track #%d (%s) has sample rate %d, but the base track has %d", i, t.Name, t.SampleRate, sampleRate)
		}
		if t.Len() == 0 {
			return nil, fmt.Errorf("track #%d (%s) is empty", i, t.Name)
		}
		signals[i] = t.Mono().Samples[0]
	}

	var estimates []Estimate
	var err error
	switch {
	case e.Params.Strategy == StrategyPairwise && len(tracks) > 2:
		estimates, err = e.estimatePairwise(ctx, signals, sampleRate)
	default:
		estimates, err = e.estimateAgainstBase(ctx, signals, sampleRate)
	}
	if err != nil {
		return nil, err
	}

	if e.Params.MaxLag > 0 {
		for i := range estimates {
			if math.Abs(sampleRate.Seconds(estimates[i].Lag)) > e.Params.MaxLag.Seconds() {
				estimates[i].Reliable = false
			}
		}
	}
	for i, est := range estimates {
		logger.Debugf(ctx, "track #%d (%s): lag %d (%.6fs), correlation %.4f, reliable: %v",
			i, tracks[i].Name, est.Lag, sampleRate.Seconds(est.Lag), est.Correlation, est.Reliable)
	}
	return &Result{
		SampleRate: sampleRate,
		Estimates:  estimates,
	}, nil
}

func (e *Estimator) bound(idx int) *Bound {
	if len(e.Params.Bounds) == 0 {
		return nil
	}
	b := e.Params.Bounds[idx]
	if idx == 0 && b == nil {
		return &Bound{Min: 0, Max: 1}
	}
	return b
}

// pairEstimate returns the lag of 'comp' relative to 'ref'.
func (e *Estimator) pairEstimate(
	ctx context.Context,
	ref, comp []float64,
	sampleRate audio.SampleRate,
	bound *Bound,
) (Estimate, error) {
	corr, lags, err := e.Correlator.Correlate(ctx, ref, comp, sampleRate)
	if err != nil {
		return Estimate{}, err
	}
	if len(corr) == 0 || len(corr) != len(lags) {
		return Estimate{}, fmt.Errorf("the correlator returned %d values for %d lags", len(corr), len(lags))
	}
	idx, inBounds := pickPeak(corr, lags, bound, e.Params.BoundsTolerance)
	return Estimate{
		Lag:         lags[idx],
		Correlation: corr[idx],
		Reliable:    inBounds && corr[idx] > 0,
	}, nil
}

func (e *Estimator) estimateAgainstBase(
	ctx context.Context,
	signals [][]float64,
	sampleRate audio.SampleRate,
) ([]Estimate, error) {
	estimates := make([]Estimate, len(signals))
	estimates[0] = Estimate{Lag: 0, Correlation: 1, Reliable: true}
	for i := 1; i < len(signals); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		est, err := e.pairEstimate(ctx, signals[0], signals[i], sampleRate, PairBound(e.bound(0), e.bound(i)))
		if err != nil {
			return nil, fmt.Errorf("unable to correlate track #%d with the base track: %w", i, err)
		}
		estimates[i] = est
	}
	return estimates, nil
}

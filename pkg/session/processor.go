// Package session runs the alignment pipeline over recording sessions,
// device runs and plain sets of audio files.
package session

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/align"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/audiofile"
	"github.com/xaionaro-go/avsync/pkg/config"
	"github.com/xaionaro-go/avsync/pkg/interpolation"
	"github.com/xaionaro-go/avsync/pkg/mix"
	"github.com/xaionaro-go/avsync/pkg/syncer"
	"github.com/xaionaro-go/avsync/pkg/transcode"
)

// dropoutContext is how many samples around a dropout are given to the
// interpolator.
const dropoutContext = 1024

// Processor holds everything the pipeline needs. It is built once and
// shared (read-only) by all the workers.
type Processor struct {
	Config       config.Config
	Loader       *audiofile.Loader
	Correlator   syncer.Correlator
	Interpolator interpolation.Interpolator
	Transcoder   *transcode.Transcoder
}

func NewProcessor(cfg config.Config) (*Processor, error) {
	correlator, err := cfg.Lag.Correlator.New()
	if err != nil {
		return nil, err
	}
	interp, err := cfg.Audio.Interpolator.New()
	if err != nil {
		return nil, err
	}
	tc := transcode.New(cfg.Transcode)
	return &Processor{
		Config:       cfg,
		Loader:       audiofile.New(audiofile.Options{TargetSampleRate: cfg.Audio.TargetSampleRate}, tc),
		Correlator:   correlator,
		Interpolator: interp,
		Transcoder:   tc,
	}, nil
}

// correlationCopies returns the mono tracks the lags are estimated on,
// with digital dropouts repaired. The input tracks are not modified.
func (p *Processor) correlationCopies(ctx context.Context, tracks []audio.Track) []audio.Track {
	result := audiofile.MonoTracks(tracks)
	minLen := p.Config.Audio.MinDropout
	if minLen <= 0 || p.Interpolator == nil {
		return result
	}
	for i, t := range result {
		repaired, dropouts := interpolation.RepairDropouts(t.Samples[0], minLen, dropoutContext, p.Interpolator)
		if len(dropouts) == 0 {
			continue
		}
		logger.Debugf(ctx, "'%s': repaired %d dropouts (%.2f%% of the track)", t.Name, len(dropouts), 100*interpolation.DropoutShare(t.Samples[0], dropouts))
		result[i] = audio.NewTrack(t.Name, t.SampleRate, repaired)
	}
	return result
}

// EstimateLags estimates the lag of every track relative to the first one.
func (p *Processor) EstimateLags(
	ctx context.Context,
	tracks []audio.Track,
	params syncer.Params,
) (*syncer.Result, error) {
	result, err := syncer.NewEstimator(p.Correlator, params).EstimateLags(ctx, p.correlationCopies(ctx, tracks))
	if err != nil {
		return nil, err
	}
	for _, idx := range result.Unreliable() {
		logger.Warnf(ctx, "the lag of '%s' is unreliable: %d samples, correlation %.4f",
			tracks[idx].Name, result.Estimates[idx].Lag, result.Estimates[idx].Correlation)
	}
	return result, nil
}

// combine aligns the tracks and mixes them down to mono or overlays their
// channels.
func combine(
	name string,
	tracks []audio.Track,
	lags []int,
	mode align.Mode,
	mono bool,
) (audio.Track, error) {
	aligned, err := align.Align(mode, tracks, lags)
	if err != nil {
		return audio.Track{}, fmt.Errorf("unable to align: %w", err)
	}
	if mono {
		return mix.Mix(name, aligned)
	}
	return mix.Overlay(name, aligned)
}

// SyncAudio aligns the audio files and writes the combined result to
// 'output'. An existing output is kept unless reprocessing is requested.
func (p *Processor) SyncAudio(
	ctx context.Context,
	inputs []string,
	output string,
) (_err error) {
	logger.Tracef(ctx, "SyncAudio(ctx, %v, '%s')", inputs, output)
	defer func() { logger.Tracef(ctx, "/SyncAudio(ctx, %v, '%s'): %v", inputs, output, _err) }()

	if err := audio.CheckTrackCount("audio sync", 2, len(inputs)); err != nil {
		return err
	}
	if !p.Config.Reprocess && artifact.Exists(output) {
		logger.Infof(ctx, "'%s' already exists, pass --reprocess to rebuild it", output)
		return nil
	}

	tracks, err := p.Loader.Load(ctx, inputs)
	if err != nil {
		return err
	}
	result, err := p.EstimateLags(ctx, tracks, p.Config.Lag.Params())
	if err != nil {
		return fmt.Errorf("unable to estimate the lags: %w", err)
	}
	combined, err := combine(output, tracks, result.Lags(), p.Config.Audio.Mode, p.Config.Audio.Mono)
	if err != nil {
		return err
	}
	if err := audiofile.WriteWAV(output, combined, p.Config.Audio.BitDepth); err != nil {
		return err
	}
	logger.Infof(ctx, "wrote '%s' (%.3fs, %d channels)", output, combined.Seconds(), combined.Channels())
	return nil
}

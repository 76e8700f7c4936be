// Package audiofile loads the input tracks of an alignment and writes
// the aligned result.
package audiofile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/resampler"
)

// Decoder decodes any media file with an audio stream. It is used for
// the formats that are not decoded natively.
type Decoder interface {
	DecodeAudio(ctx context.Context, path string) (audio.Track, error)
}

type Options struct {
	// TargetSampleRate is the rate every track is explicitly resampled
	// to. If zero, all tracks must already share one sample rate.
	TargetSampleRate audio.SampleRate
}

type Loader struct {
	Options  Options
	Fallback Decoder
}

func New(opts Options, fallback Decoder) *Loader {
	return &Loader{
		Options:  opts,
		Fallback: fallback,
	}
}

// LoadFile decodes a single file keeping its channel layout and
// sample rate.
func (l *Loader) LoadFile(
	ctx context.Context,
	path string,
) (_ret audio.Track, _err error) {
	logger.Tracef(ctx, "LoadFile(ctx, '%s')", path)
	defer func() { logger.Tracef(ctx, "/LoadFile(ctx, '%s'): %v", path, _err) }()

	f, err := os.Open(path)
	if err != nil {
		return audio.Track{}, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	var track audio.Track
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		track, err = decodeWAV(path, f)
		if errors.Is(err, errUnsupportedWAV) && l.Fallback != nil {
			logger.Debugf(ctx, "'%s': %v; falling back to the external decoder", path, err)
			track, err = l.Fallback.DecodeAudio(ctx, path)
		}
	case ".ogg", ".oga":
		track, err = decodeOgg(path, f)
	default:
		if l.Fallback == nil {
			err = fmt.Errorf("no decoder for the file extension %q", filepath.Ext(path))
			break
		}
		track, err = l.Fallback.DecodeAudio(ctx, path)
	}
	if err != nil {
		return audio.Track{}, &LoadError{Path: path, Err: err}
	}
	track.Name = path
	if err := track.Validate(); err != nil {
		return audio.Track{}, &LoadError{Path: path, Err: err}
	}
	return track, nil
}

// Load decodes all the files and brings them to one sample rate
// according to the sample rate policy in Options.
func (l *Loader) Load(
	ctx context.Context,
	paths []string,
) ([]audio.Track, error) {
	if err := audio.CheckTrackCount("loading tracks for alignment", 2, len(paths)); err != nil {
		return nil, err
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
	}

	tracks := make([]audio.Track, 0, len(paths))
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		track, err := l.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Debugf(ctx, "loaded '%s': %d Hz, %d channels, %.3fs", path, track.SampleRate, track.Channels(), track.Seconds())
		tracks = append(tracks, track)
	}

	return l.unifySampleRates(ctx, tracks)
}

func (l *Loader) unifySampleRates(
	ctx context.Context,
	tracks []audio.Track,
) ([]audio.Track, error) {
	target := l.Options.TargetSampleRate
	if target == 0 {
		for _, t := range tracks[1:] {
			if t.SampleRate != tracks[0].SampleRate {
				return nil, &LoadError{Path: t.Name, Err: &SampleRateMismatchError{
					Path:     t.Name,
					Expected: tracks[0].SampleRate,
					Got:      t.SampleRate,
				}}
			}
		}
		return tracks, nil
	}

	result := make([]audio.Track, len(tracks))
	for i, t := range tracks {
		if t.SampleRate != target {
			logger.Debugf(ctx, "resampling '%s' from %d Hz to %d Hz", t.Name, t.SampleRate, target)
		}
		resampled, err := resampler.ResampleTrack(t, target)
		if err != nil {
			return nil, &LoadError{Path: t.Name, Err: err}
		}
		result[i] = resampled
	}
	return result, nil
}

// MonoTracks returns the mono reduction of every track.
func MonoTracks(tracks []audio.Track) []audio.Track {
	result := make([]audio.Track, len(tracks))
	for i, t := range tracks {
		result[i] = t.Mono()
	}
	return result
}

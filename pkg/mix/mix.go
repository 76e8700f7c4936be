// Package mix combines aligned tracks into one.
package mix

import (
	"fmt"

	"github.com/xaionaro-go/avsync/pkg/audio"
	"gonum.org/v1/gonum/floats"
)

func checkAligned(operation string, tracks []audio.Track) error {
	if err := audio.CheckTrackCount(operation, 1, len(tracks)); err != nil {
		return err
	}
	length := tracks[0].Len()
	sampleRate := tracks[0].SampleRate
	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		if t.SampleRate != sampleRate {
			return fmt.Errorf("%s: track #%d has sample rate %d, expected %d", operation, i, t.SampleRate, sampleRate)
		}
		if t.Len() != length {
			return &audio.ShapeMismatchError{
				Operation: operation,
				Index:     i,
				Expected:  length,
				Got:       t.Len(),
			}
		}
	}
	return nil
}

// Mix reduces every track to mono and averages them.
// The tracks must be aligned already, no truncation is done.
func Mix(name string, tracks []audio.Track) (audio.Track, error) {
	if err := checkAligned("mix", tracks); err != nil {
		return audio.Track{}, err
	}
	out := make([]float64, tracks[0].Len())
	for _, t := range tracks {
		floats.Add(out, t.Mono().Samples[0])
	}
	if len(tracks) > 1 {
		floats.Scale(1/float64(len(tracks)), out)
	}
	return audio.NewTrack(name, tracks[0].SampleRate, out), nil
}

// Overlay puts the channels of all tracks side by side into one
// multi-channel track. Every channel is divided by the total channel
// count, so that a later down-mix of the result cannot clip.
func Overlay(name string, tracks []audio.Track) (audio.Track, error) {
	if err := checkAligned("overlay", tracks); err != nil {
		return audio.Track{}, err
	}
	var total int
	for _, t := range tracks {
		total += len(t.Samples)
	}
	scale := 1 / float64(total)
	channels := make([][]float64, 0, total)
	for _, t := range tracks {
		for _, samples := range t.Samples {
			ch := make([]float64, len(samples))
			floats.ScaleTo(ch, scale, samples)
			channels = append(channels, ch)
		}
	}
	return audio.NewTrack(name, tracks[0].SampleRate, channels...), nil
}

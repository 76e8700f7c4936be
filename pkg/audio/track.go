package audio

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

type Channel uint32

type SampleRate uint32

// Seconds converts a sample count into seconds.
func (sr SampleRate) Seconds(samples int) float64 {
	return float64(samples) / float64(sr)
}

func (sr SampleRate) Duration(samples int) time.Duration {
	return time.Duration(sr.Seconds(samples) * float64(time.Second))
}

// Track is a named multi-channel audio signal stored planar
// (one slice per channel, all of the same length).
//
// A Track is never modified in place: Mono, Slice and Pad
// return new values and leave the receiver intact.
type Track struct {
	Name       string
	SampleRate SampleRate
	Samples    [][]float64
}

func NewTrack(
	name string,
	sampleRate SampleRate,
	channels ...[]float64,
) Track {
	return Track{
		Name:       name,
		SampleRate: sampleRate,
		Samples:    channels,
	}
}

func (t Track) Channels() Channel {
	return Channel(len(t.Samples))
}

// Len returns the amount of samples per channel.
func (t Track) Len() int {
	if len(t.Samples) == 0 {
		return 0
	}
	return len(t.Samples[0])
}

func (t Track) Seconds() float64 {
	return t.SampleRate.Seconds(t.Len())
}

func (t Track) Validate() error {
	if t.SampleRate == 0 {
		return fmt.Errorf("track %q has no sample rate", t.Name)
	}
	if len(t.Samples) == 0 {
		return fmt.Errorf("track %q has no channels", t.Name)
	}
	for ch, samples := range t.Samples {
		if len(samples) != len(t.Samples[0]) {
			return &ShapeMismatchError{
				Operation: fmt.Sprintf("track %q", t.Name),
				Index:     ch,
				Expected:  len(t.Samples[0]),
				Got:       len(samples),
			}
		}
	}
	return nil
}

// Mono returns the channel average of the track. A mono track is
// returned as is.
func (t Track) Mono() Track {
	if len(t.Samples) == 1 {
		return t
	}
	out := make([]float64, t.Len())
	if len(t.Samples) == 0 {
		return NewTrack(t.Name, t.SampleRate, out)
	}
	for _, samples := range t.Samples {
		floats.Add(out, samples)
	}
	floats.Scale(1/float64(len(t.Samples)), out)
	return NewTrack(t.Name, t.SampleRate, out)
}

// Slice returns the samples [start:end) of every channel.
func (t Track) Slice(start, end int) Track {
	channels := make([][]float64, len(t.Samples))
	for ch, samples := range t.Samples {
		channels[ch] = samples[start:end:end]
	}
	return NewTrack(t.Name, t.SampleRate, channels...)
}

// Pad returns a copy of the track with 'left' zero samples inserted
// before and 'right' zero samples appended after every channel.
func (t Track) Pad(left, right int) Track {
	channels := make([][]float64, len(t.Samples))
	for ch, samples := range t.Samples {
		padded := make([]float64, left+len(samples)+right)
		copy(padded[left:], samples)
		channels[ch] = padded
	}
	return NewTrack(t.Name, t.SampleRate, channels...)
}

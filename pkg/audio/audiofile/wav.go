package audiofile

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/planar"
)

const (
	wavFormatPCM = 1

	DefaultBitDepth = 16
)

// errUnsupportedWAV means that the file is a valid WAV file which
// go-audio/wav cannot decode into integers (e.g. IEEE float samples).
var errUnsupportedWAV = fmt.Errorf("unsupported WAV sample format")

func decodeWAV(name string, r io.ReadSeeker) (audio.Track, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return audio.Track{}, fmt.Errorf("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return audio.Track{}, fmt.Errorf("%w: format tag %d", errUnsupportedWAV, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return audio.Track{}, fmt.Errorf("unable to read the PCM data: %w", err)
	}
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return audio.Track{}, fmt.Errorf("%w: bit depth %d", errUnsupportedWAV, bitDepth)
	}

	samples := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			samples[i] = float64(v-128) / 128
		}
	} else {
		scale := float64(int64(1) << (bitDepth - 1))
		for i, v := range buf.Data {
			samples[i] = float64(v) / scale
		}
	}

	channels, err := planar.Planarize(audio.Channel(d.NumChans), samples)
	if err != nil {
		return audio.Track{}, err
	}
	return audio.NewTrack(name, audio.SampleRate(d.SampleRate), channels...), nil
}

// WAVInfo describes a WAV file without decoding its samples.
type WAVInfo struct {
	SampleRate audio.SampleRate
	Channels   audio.Channel
	BitDepth   int
	Frames     int
}

func (i WAVInfo) Seconds() float64 {
	return i.SampleRate.Seconds(i.Frames)
}

// ReadWAVInfo reads only the headers of a WAV file.
func ReadWAVInfo(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("not a valid WAV file")}
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unable to find the PCM chunk: %w", err)}
	}
	frameSize := int(d.NumChans) * int(d.BitDepth) / 8
	if frameSize == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("invalid frame size")}
	}
	return &WAVInfo{
		SampleRate: audio.SampleRate(d.SampleRate),
		Channels:   audio.Channel(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Frames:     d.PCMSize / frameSize,
	}, nil
}

// WriteWAV atomically writes the track as integer PCM WAV.
func WriteWAV(path string, t audio.Track, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}

	interleaved, err := planar.Unplanarize(t.Samples)
	if err != nil {
		return fmt.Errorf("unable to interleave the channels: %w", err)
	}
	maxValue := float64(int64(1)<<(bitDepth-1)) - 1
	data := make([]int, len(interleaved))
	for i, v := range interleaved {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * maxValue))
	}

	return artifact.WriteFile(path, func(f *os.File) error {
		enc := wav.NewEncoder(f, int(t.SampleRate), bitDepth, int(t.Channels()), wavFormatPCM)
		err := enc.Write(&goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: int(t.Channels()),
				SampleRate:  int(t.SampleRate),
			},
			Data:           data,
			SourceBitDepth: bitDepth,
		})
		if err != nil {
			return fmt.Errorf("unable to encode '%s': %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("unable to finalize '%s': %w", path, err)
		}
		return nil
	})
}

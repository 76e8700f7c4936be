package resampler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/planar"
	"github.com/xaionaro-go/avsync/pkg/audio/types"
)

type Format struct {
	Channels   audio.Channel
	SampleRate audio.SampleRate
	PCMFormat  types.PCMFormat
}

func (f Format) Validate() error {
	if f.Channels == 0 {
		return fmt.Errorf("the amount of channels is not set")
	}
	if f.SampleRate == 0 {
		return fmt.Errorf("the sample rate is not set")
	}
	if f.PCMFormat.Size() == 0 {
		return fmt.Errorf("unsupported PCM format: %v", f.PCMFormat)
	}
	return nil
}

func getFloat64(f types.PCMFormat, p []byte) float64 {
	switch f {
	case types.PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case types.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case types.PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / 32768
	case types.PCMFormatS24LE:
		return float64(signExtend24(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16)) / 8388608
	case types.PCMFormatS24BE:
		return float64(signExtend24(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16)) / 8388608
	case types.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648
	case types.PCMFormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648
	case types.PCMFormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / 9223372036854775808
	case types.PCMFormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / 9223372036854775808
	case types.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case types.PCMFormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
	case types.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	case types.PCMFormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func signExtend24(v uint32) int32 {
	val := int32(v)
	if val&0x800000 != 0 {
		val |= -16777216
	}
	return val
}

// Decode converts interleaved raw PCM into planar float64 samples
// normalized to [-1, 1]. A trailing incomplete frame is an error.
func Decode(f Format, data []byte) ([][]float64, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format %#+v: %w", f, err)
	}
	sampleSize := int(f.PCMFormat.Size())
	frameSize := sampleSize * int(f.Channels)
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("received %d bytes, which is not a multiple of the frame size %d", len(data), frameSize)
	}

	interleaved := make([]float64, len(data)/sampleSize)
	for i := range interleaved {
		interleaved[i] = getFloat64(f.PCMFormat, data[i*sampleSize:])
	}
	return planar.Planarize(f.Channels, interleaved)
}

// Resample converts the samples from one sample rate to another using
// linear interpolation. The input position of every output sample is
// tracked as an exact rational number, so the result does not drift
// on long recordings.
func Resample(samples []float64, from, to audio.SampleRate) []float64 {
	if from == to {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	if len(samples) == 0 || from == 0 || to == 0 {
		return []float64{}
	}

	outLen := int(uint64(len(samples)) * uint64(to) / uint64(from))
	out := make([]float64, outLen)
	for j := range out {
		distance := uint64(j) * uint64(from)
		idx := int(distance / uint64(to))
		frac := float64(distance%uint64(to)) / float64(to)
		if idx+1 >= len(samples) {
			out[j] = samples[len(samples)-1]
			continue
		}
		out[j] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// ResampleTrack returns the track converted to the given sample rate.
func ResampleTrack(t audio.Track, to audio.SampleRate) (audio.Track, error) {
	if to == 0 {
		return audio.Track{}, fmt.Errorf("the target sample rate is not set")
	}
	if t.SampleRate == 0 {
		return audio.Track{}, fmt.Errorf("track %q has no sample rate", t.Name)
	}
	if t.SampleRate == to {
		return t, nil
	}
	channels := make([][]float64, len(t.Samples))
	for ch, samples := range t.Samples {
		channels[ch] = Resample(samples, t.SampleRate, to)
	}
	return audio.NewTrack(t.Name, to, channels...), nil
}

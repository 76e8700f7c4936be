package audiofile

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/planar"
)

func decodeOgg(name string, r io.Reader) (audio.Track, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return audio.Track{}, fmt.Errorf("unable to decode the Ogg/Vorbis stream: %w", err)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return audio.Track{}, fmt.Errorf("invalid Ogg/Vorbis format: %#+v", format)
	}

	samples := make([]float64, len(data))
	for i, v := range data {
		samples[i] = float64(v)
	}
	channels, err := planar.Planarize(audio.Channel(format.Channels), samples)
	if err != nil {
		return audio.Track{}, err
	}
	return audio.NewTrack(name, audio.SampleRate(format.SampleRate), channels...), nil
}

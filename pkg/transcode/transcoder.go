// Package transcode wraps the external media tools (ffmpeg and ffprobe)
// used to decode arbitrary audio containers and to produce the
// side-by-side synchronized video.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/resampler"
	"github.com/xaionaro-go/avsync/pkg/audio/types"
	"github.com/xaionaro-go/datacounter"
)

type Config struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	VideoCodec  string `yaml:"video_codec"`
	AudioCodec  string `yaml:"audio_codec"`
}

func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		VideoCodec:  "libx264",
		AudioCodec:  "aac",
	}
}

type Transcoder struct {
	Config Config
	Runner Runner
}

func New(cfg Config) *Transcoder {
	return &Transcoder{
		Config: cfg,
		Runner: ExecRunner{},
	}
}

// AudioStreamInfo describes the first audio stream of a media file.
type AudioStreamInfo struct {
	SampleRate audio.SampleRate
	Channels   audio.Channel
	Codec      string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ProbeAudio returns the format of the first audio stream of the file.
func (t *Transcoder) ProbeAudio(
	ctx context.Context,
	path string,
) (*AudioStreamInfo, error) {
	var stdout bytes.Buffer
	err := t.Runner.Run(ctx, Command{
		Name: t.Config.FFprobePath,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_streams",
			"-select_streams", "a:0",
			path,
		},
		Stdout: &stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to probe '%s': %w", path, err)
	}
	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(b []byte) (*AudioStreamInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unable to parse the ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}
	s := out.Streams[0]
	sampleRate, err := strconv.ParseUint(s.SampleRate, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the sample rate %q: %w", s.SampleRate, err)
	}
	if sampleRate == 0 || s.Channels <= 0 {
		return nil, fmt.Errorf("invalid audio stream: sample_rate:%d channels:%d", sampleRate, s.Channels)
	}
	return &AudioStreamInfo{
		SampleRate: audio.SampleRate(sampleRate),
		Channels:   audio.Channel(s.Channels),
		Codec:      s.CodecName,
	}, nil
}

// DecodeAudio decodes the first audio stream of the file into a track,
// keeping its native sample rate and channel layout.
func (t *Transcoder) DecodeAudio(
	ctx context.Context,
	path string,
) (audio.Track, error) {
	info, err := t.ProbeAudio(ctx, path)
	if err != nil {
		return audio.Track{}, err
	}

	const pcmFormat = types.PCMFormatFloat64LE
	var stdout bytes.Buffer
	wc := datacounter.NewWriterCounter(&stdout)
	err = t.Runner.Run(ctx, Command{
		Name: t.Config.FFmpegPath,
		Args: []string{
			"-v", "error",
			"-i", path,
			"-vn",
			"-f", pcmFormat.String(),
			"-acodec", pcmFormat.FFmpegCodec(),
			"pipe:1",
		},
		Stdout: wc,
	})
	if err != nil {
		return audio.Track{}, fmt.Errorf("unable to decode '%s': %w", path, err)
	}
	logger.Debugf(ctx, "decoded %d bytes of %s from '%s' (%d Hz, %d channels)", wc.Count(), pcmFormat, path, info.SampleRate, info.Channels)

	channels, err := resampler.Decode(resampler.Format{
		Channels:   info.Channels,
		SampleRate: info.SampleRate,
		PCMFormat:  pcmFormat,
	}, stdout.Bytes())
	if err != nil {
		return audio.Track{}, fmt.Errorf("unable to parse the PCM data of '%s': %w", path, err)
	}
	return audio.NewTrack(path, info.SampleRate, channels...), nil
}

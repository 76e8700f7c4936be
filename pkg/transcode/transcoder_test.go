package transcode

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

type fakeRunner struct {
	commands []Command
	outputs  map[string][]byte
	err      error
}

func (r *fakeRunner) Run(ctx context.Context, c Command) error {
	r.commands = append(r.commands, c)
	if r.err != nil {
		return r.err
	}
	if out, ok := r.outputs[c.Name]; ok && c.Stdout != nil {
		_, err := c.Stdout.Write(out)
		return err
	}
	return nil
}

func newTestTranscoder(r Runner) *Transcoder {
	t := New(DefaultConfig())
	t.Runner = r
	return t
}

func TestFormatTimestamp(t *testing.T) {
	for _, tc := range []struct {
		in  float64
		out string
	}{
		{0, "00:00:00.000000"},
		{5.25, "00:00:05.250000"},
		{61.5, "00:01:01.500000"},
		{3661.5, "01:01:01.500000"},
		{-1, "00:00:00.000000"},
		{59.9999999, "00:01:00.000000"},
		{119.9999996, "00:02:00.000000"},
		{3599.9999999, "01:00:00.000000"},
		{0.0000004, "00:00:00.000000"},
	} {
		assert.Equal(t, tc.out, FormatTimestamp(tc.in), tc.in)
	}
}

func TestHStackArgs(t *testing.T) {
	tr := newTestTranscoder(&fakeRunner{})

	t.Run("with_audio", func(t *testing.T) {
		args, err := tr.HStackArgs(HStackRequest{
			Videos:     []string{"a.mp4", "b.mp4"},
			StartTimes: []float64{0, 0.5},
			Audio:      "mix.wav",
			Output:     "out.mp4",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"-y",
			"-ss", "00:00:00.000000", "-i", "a.mp4",
			"-ss", "00:00:00.500000", "-i", "b.mp4",
			"-i", "mix.wav",
			"-filter_complex", "[0:v][1:v]hstack=inputs=2:shortest=1[v]",
			"-map", "[v]", "-c:v", "libx264",
			"-map", "2:a", "-c:a", "aac",
			"out.mp4",
		}, args)
	})

	t.Run("without_audio", func(t *testing.T) {
		args, err := tr.HStackArgs(HStackRequest{
			Videos:     []string{"a.mp4", "b.mp4", "c.mp4"},
			StartTimes: []float64{1, 0, 2},
			Output:     "out.mp4",
		})
		require.NoError(t, err)
		assert.Contains(t, args, "[0:v][1:v][2:v]hstack=inputs=3:shortest=1[v]")
		assert.NotContains(t, args, "-c:a")
		assert.Equal(t, "out.mp4", args[len(args)-1])
	})

	t.Run("single_video", func(t *testing.T) {
		_, err := tr.HStackArgs(HStackRequest{
			Videos:     []string{"a.mp4"},
			StartTimes: []float64{0},
			Output:     "out.mp4",
		})
		var insufficient *audio.InsufficientTracksError
		require.True(t, errors.As(err, &insufficient))
	})

	t.Run("start_times_mismatch", func(t *testing.T) {
		_, err := tr.HStackArgs(HStackRequest{
			Videos:     []string{"a.mp4", "b.mp4"},
			StartTimes: []float64{0},
			Output:     "out.mp4",
		})
		require.Error(t, err)
	})
}

func TestHStack_ToolFailure(t *testing.T) {
	toolErr := &ExternalToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "boom", Err: errors.New("exit status 1")}
	r := &fakeRunner{err: toolErr}
	err := newTestTranscoder(r).HStack(context.Background(), HStackRequest{
		Videos:     []string{"a.mp4", "b.mp4"},
		StartTimes: []float64{0, 0},
		Output:     "out.mp4",
	})
	var got *ExternalToolError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, got.ExitCode)
	assert.Contains(t, err.Error(), "boom")
	require.Len(t, r.commands, 1)
	assert.Equal(t, "ffmpeg", r.commands[0].Name)
}

func TestDecodeAudio(t *testing.T) {
	pcm := make([]byte, 4*8)
	for i, v := range []float64{0.5, -0.5, 0.25, -0.25} {
		binary.LittleEndian.PutUint64(pcm[i*8:], math.Float64bits(v))
	}
	r := &fakeRunner{outputs: map[string][]byte{
		"ffprobe": []byte(`{"streams":[{"codec_name":"aac","sample_rate":"16000","channels":2}]}`),
		"ffmpeg":  pcm,
	}}

	track, err := newTestTranscoder(r).DecodeAudio(context.Background(), "in.m4a")
	require.NoError(t, err)
	assert.Equal(t, audio.SampleRate(16000), track.SampleRate)
	assert.Equal(t, [][]float64{{0.5, 0.25}, {-0.5, -0.25}}, track.Samples)
	require.Len(t, r.commands, 2)
	assert.Contains(t, r.commands[1].Args, "pcm_f64le")
}

func TestParseProbeOutput(t *testing.T) {
	_, err := parseProbeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)
	_, err = parseProbeOutput([]byte(`{"streams":[{"sample_rate":"x","channels":1}]}`))
	assert.Error(t, err)
	_, err = parseProbeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo oops >&2; exit 3"},
	})
	var toolErr *ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Contains(t, toolErr.Stderr, "oops")
}

package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/audiofile"
	"github.com/xaionaro-go/avsync/pkg/offsets"
)

type fixture struct {
	dir     string
	outputs Outputs
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	return &fixture{
		dir: dir,
		outputs: Outputs{
			Audio:   filepath.Join(dir, "microphones-mono.wav"),
			Video:   filepath.Join(dir, "camera-slam-left.mp4"),
			Poses:   []string{filepath.Join(dir, "pose0.csv"), filepath.Join(dir, "pose1.csv")},
			Offsets: filepath.Join(dir, offsets.DefaultFileName),
			Sources: []string{"a", "b"},
		},
	}
}

func (f *fixture) writeAudio(t *testing.T) {
	require.NoError(t, audiofile.WriteWAV(f.outputs.Audio, audio.NewTrack("", 8000, make([]float64, 800)), 16))
}

func (f *fixture) writeVideo(t *testing.T) {
	require.NoError(t, os.WriteFile(f.outputs.Video, []byte("not really a video"), 0o644))
}

func (f *fixture) writePoses(t *testing.T, count int) {
	for _, path := range f.outputs.Poses[:count] {
		require.NoError(t, os.WriteFile(path, []byte("# t,qw,qx,qy,qz\n"), 0o644))
	}
}

func (f *fixture) writeOffsets(t *testing.T, record offsets.Record) {
	require.NoError(t, offsets.Save(f.outputs.Offsets, record))
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing_exists", func(t *testing.T) {
		f := newFixture(t)
		plan := Evaluate(ctx, f.outputs, false)
		assert.Equal(t, NotStarted, plan.Audio)
		assert.Equal(t, NotStarted, plan.Video)
		assert.Equal(t, NotStarted, plan.Pose)
		assert.Equal(t, LagSourceRecompute, plan.LagSource)
	})

	t.Run("everything_exists", func(t *testing.T) {
		f := newFixture(t)
		f.writeAudio(t)
		f.writeVideo(t)
		f.writePoses(t, 2)
		plan := Evaluate(ctx, f.outputs, false)
		assert.True(t, plan.Done())
		assert.Equal(t, LagSourceNone, plan.LagSource)
	})

	t.Run("video_missing_offsets_reloaded", func(t *testing.T) {
		f := newFixture(t)
		f.writeAudio(t)
		f.writePoses(t, 2)
		f.writeOffsets(t, offsets.Record{"a": 0, "b": 0.5})
		plan := Evaluate(ctx, f.outputs, false)
		assert.False(t, plan.NeedsAudio())
		assert.True(t, plan.NeedsVideo())
		assert.False(t, plan.NeedsPose())
		assert.Equal(t, LagSourceReload, plan.LagSource)
		assert.Equal(t, offsets.Record{"a": 0, "b": 0.5}, plan.Offsets)
	})

	t.Run("offsets_incomplete", func(t *testing.T) {
		f := newFixture(t)
		f.writeAudio(t)
		f.writeVideo(t)
		f.writeOffsets(t, offsets.Record{"a": 0})
		plan := Evaluate(ctx, f.outputs, false)
		assert.Equal(t, NotStarted, plan.Pose)
		assert.Equal(t, LagSourceRecompute, plan.LagSource)
		assert.Nil(t, plan.Offsets)
	})

	t.Run("audio_missing_offsets_ignored", func(t *testing.T) {
		f := newFixture(t)
		f.writeOffsets(t, offsets.Record{"a": 0, "b": 0.5})
		plan := Evaluate(ctx, f.outputs, false)
		assert.Equal(t, LagSourceRecompute, plan.LagSource)
	})

	t.Run("partial", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.WriteFile(f.outputs.Audio, []byte("RIFF"), 0o644))
		require.NoError(t, os.WriteFile(f.outputs.Video, nil, 0o644))
		f.writePoses(t, 1)
		plan := Evaluate(ctx, f.outputs, false)
		assert.Equal(t, PartiallyComplete, plan.Audio)
		assert.Equal(t, PartiallyComplete, plan.Video)
		assert.Equal(t, PartiallyComplete, plan.Pose)
		assert.Equal(t, LagSourceRecompute, plan.LagSource)
	})

	t.Run("reprocess", func(t *testing.T) {
		f := newFixture(t)
		f.writeAudio(t)
		f.writeVideo(t)
		f.writePoses(t, 2)
		f.writeOffsets(t, offsets.Record{"a": 0, "b": 0.5})
		plan := Evaluate(ctx, f.outputs, true)
		assert.Equal(t, NotStarted, plan.Audio)
		assert.Equal(t, NotStarted, plan.Video)
		assert.Equal(t, NotStarted, plan.Pose)
		assert.Equal(t, LagSourceRecompute, plan.LagSource)
	})

	t.Run("not_produced", func(t *testing.T) {
		f := newFixture(t)
		f.writeAudio(t)
		outputs := f.outputs
		outputs.Video = ""
		outputs.Poses = nil
		for _, reprocess := range []bool{false, true} {
			plan := Evaluate(ctx, outputs, reprocess)
			assert.Equal(t, Complete, plan.Video)
			assert.Equal(t, Complete, plan.Pose)
		}
	})
}

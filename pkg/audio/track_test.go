package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	stereo := NewTrack("stereo", 4, []float64{1, 2, 3, 4}, []float64{3, 2, 1, 0})

	t.Run("Mono", func(t *testing.T) {
		mono := stereo.Mono()
		require.Equal(t, Channel(1), mono.Channels())
		assert.Equal(t, []float64{2, 2, 2, 2}, mono.Samples[0])
		assert.Equal(t, []float64{1, 2, 3, 4}, stereo.Samples[0], "the source must stay intact")
	})

	t.Run("Mono_of_mono_is_identity", func(t *testing.T) {
		mono := NewTrack("m", 4, []float64{0.5, -0.5})
		assert.Equal(t, mono, mono.Mono())
	})

	t.Run("Slice", func(t *testing.T) {
		s := stereo.Slice(1, 3)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, [][]float64{{2, 3}, {2, 1}}, s.Samples)
	})

	t.Run("Pad", func(t *testing.T) {
		p := stereo.Pad(1, 2)
		assert.Equal(t, 7, p.Len())
		assert.Equal(t, []float64{0, 1, 2, 3, 4, 0, 0}, p.Samples[0])
		assert.Equal(t, []float64{0, 3, 2, 1, 0, 0, 0}, p.Samples[1])
		assert.Equal(t, 4, stereo.Len())
	})

	t.Run("Seconds", func(t *testing.T) {
		assert.Equal(t, 1.0, stereo.Seconds())
	})

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, stereo.Validate())

		broken := NewTrack("broken", 4, []float64{1, 2}, []float64{1})
		var shapeErr *ShapeMismatchError
		require.True(t, errors.As(broken.Validate(), &shapeErr))
		assert.Equal(t, 1, shapeErr.Index)

		assert.Error(t, NewTrack("no-rate", 0, []float64{1}).Validate())
		assert.Error(t, NewTrack("no-channels", 4).Validate())
	})
}

func TestCheckTrackCount(t *testing.T) {
	require.NoError(t, CheckTrackCount("x", 2, 2))

	err := CheckTrackCount("x", 2, 1)
	var insufficient *InsufficientTracksError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Got)
	assert.Contains(t, err.Error(), "at least 2")
}

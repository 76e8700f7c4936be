package align

import (
	"errors"
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

func ramp(n int, from float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)
	}
	return out
}

func sine(n int, freq float64, sampleRate audio.SampleRate) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestTrim_AlreadyAligned(t *testing.T) {
	tracks := []audio.Track{
		audio.NewTrack("a", 1000, ramp(10, 0)),
		audio.NewTrack("b", 1000, ramp(7, 100), ramp(7, 200)),
		audio.NewTrack("c", 1000, ramp(12, 300)),
	}
	result, err := Trim(tracks, []int{0, 0, 0})
	require.NoError(t, err)
	require.Len(t, result, 3)
	for i, r := range result {
		require.Equal(t, 7, r.Len(), spew.Sdump(r))
		for ch := range r.Samples {
			assert.Equal(t, tracks[i].Samples[ch][:7], r.Samples[ch])
		}
	}
}

func TestTrim(t *testing.T) {
	// b contains a's content 3 samples later, c 2 samples earlier
	a := audio.NewTrack("a", 1000, ramp(10, 0))
	b := audio.NewTrack("b", 1000, append([]float64{-1, -1, -1}, ramp(10, 0)...))
	c := audio.NewTrack("c", 1000, ramp(10, 2))

	result, err := Trim([]audio.Track{a, b, c}, []int{0, 3, -2})
	require.NoError(t, err)
	for _, r := range result {
		assert.Equal(t, ramp(8, 2), r.Samples[0])
	}
}

func TestPad(t *testing.T) {
	a := audio.NewTrack("a", 1000, ramp(10, 1))
	b := audio.NewTrack("b", 1000, ramp(4, 4))
	c := audio.NewTrack("c", 1000, ramp(6, -1))

	lags := []int{0, -3, 2}
	result, err := Pad([]audio.Track{a, b, c}, lags)
	require.NoError(t, err)

	pads := LeftPads(lags)
	assert.Equal(t, []int{2, 5, 0}, pads)

	total := 0
	for i, tr := range []audio.Track{a, b, c} {
		total = max(total, tr.Len()+pads[i])
	}
	for i, tr := range []audio.Track{a, b, c} {
		require.Equal(t, total, result[i].Len())
		assert.Equal(t, tr.Samples[0], result[i].Samples[0][pads[i]:pads[i]+tr.Len()])
		for _, v := range result[i].Samples[0][:pads[i]] {
			assert.Zero(t, v)
		}
		for _, v := range result[i].Samples[0][pads[i]+tr.Len():] {
			assert.Zero(t, v)
		}
	}

	// the shared content is at the same position everywhere
	assert.Equal(t, result[0].Samples[0][5], result[1].Samples[0][5])
	assert.Equal(t, result[0].Samples[0][5], result[2].Samples[0][5])
}

func TestAlign_SineScenario(t *testing.T) {
	const sampleRate = 16000
	a := sine(16000, 440, sampleRate)
	b := append(make([]float64, 8000), a...)
	tracks := []audio.Track{
		audio.NewTrack("a", sampleRate, a),
		audio.NewTrack("b", sampleRate, b),
	}
	lags := []int{0, 8000}

	t.Run("trim", func(t *testing.T) {
		result, err := Align(ModeTrim, tracks, lags)
		require.NoError(t, err)
		require.Len(t, result[0].Samples[0], len(a))
		require.Len(t, result[1].Samples[0], len(a))
		assert.Equal(t, result[0].Samples[0], result[1].Samples[0])
	})

	t.Run("pad", func(t *testing.T) {
		result, err := Align(ModePad, tracks, lags)
		require.NoError(t, err)
		require.Len(t, result[0].Samples[0], 8000+len(a))
		require.Len(t, result[1].Samples[0], 8000+len(a))
		assert.Equal(t, b, result[1].Samples[0])
		assert.Equal(t, make([]float64, 8000), result[0].Samples[0][:8000])
		assert.Equal(t, result[1].Samples[0], result[0].Samples[0])
	})
}

func TestAlign_Errors(t *testing.T) {
	one := []audio.Track{audio.NewTrack("a", 1000, ramp(5, 0))}
	two := append(one, audio.NewTrack("b", 1000, ramp(5, 0)))

	for _, mode := range []Mode{ModeTrim, ModePad} {
		_, err := Align(mode, one, []int{0})
		var insufficient *audio.InsufficientTracksError
		assert.True(t, errors.As(err, &insufficient), mode)

		_, err = Align(mode, two, []int{0})
		var shape *audio.ShapeMismatchError
		assert.True(t, errors.As(err, &shape), mode)
	}

	_, err := Align(Mode("stretch"), two, []int{0, 0})
	assert.Error(t, err)
}

func TestTrim_DoesNotModifyInput(t *testing.T) {
	a := audio.NewTrack("a", 1000, ramp(5, 0))
	b := audio.NewTrack("b", 1000, ramp(5, 0))
	_, err := Pad([]audio.Track{a, b}, []int{0, 2})
	require.NoError(t, err)
	_, err = Trim([]audio.Track{a, b}, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, ramp(5, 0), a.Samples[0])
	assert.Equal(t, ramp(5, 0), b.Samples[0])
}

func TestStartTimes(t *testing.T) {
	assert.Nil(t, StartTimes(nil))
	assert.Equal(t, []float64{0.5, 0, 1.25}, StartTimes([]float64{0, -0.5, 0.75}))
}

func TestMode_Set(t *testing.T) {
	var m Mode
	require.NoError(t, m.Set("pad"))
	assert.Equal(t, ModePad, m)
	require.NoError(t, m.UnmarshalText([]byte("trim")))
	assert.Equal(t, ModeTrim, m)
	assert.Error(t, m.Set("crop"))
}

// Package align lines up timelines (audio tracks, pose streams, ...)
// given their lags as estimated by package syncer.
package align

import (
	"fmt"
	"slices"

	"github.com/xaionaro-go/avsync/pkg/audio"
)

// Timeline is anything that can be cut and extended along time.
// Slice and Pad must return new values.
type Timeline[T any] interface {
	Len() int
	Slice(start, end int) T
	Pad(left, right int) T
}

type Mode string

const (
	// ModeTrim cuts every timeline to the window covered by all of them.
	ModeTrim = Mode("trim")

	// ModePad extends every timeline with silence to the union of the spans.
	ModePad = Mode("pad")
)

func (m Mode) String() string {
	return string(m)
}

func (m *Mode) Set(v string) error {
	switch Mode(v) {
	case ModeTrim, ModePad:
		*m = Mode(v)
		return nil
	}
	return fmt.Errorf("unknown alignment mode %q, expected %q or %q", v, ModeTrim, ModePad)
}

func (m *Mode) Type() string {
	return "mode"
}

func (m *Mode) UnmarshalText(b []byte) error {
	return m.Set(string(b))
}

// Align dispatches to Trim or Pad.
func Align[T Timeline[T]](mode Mode, items []T, lags []int) ([]T, error) {
	switch mode {
	case ModeTrim:
		return Trim(items, lags)
	case ModePad:
		return Pad(items, lags)
	default:
		return nil, fmt.Errorf("unknown alignment mode %q", mode)
	}
}

func checkShape(operation string, numItems int, lags []int) error {
	if err := audio.CheckTrackCount(operation, 2, numItems); err != nil {
		return err
	}
	if len(lags) != numItems {
		return &audio.ShapeMismatchError{
			Operation: operation + ": lags",
			Index:     0,
			Expected:  numItems,
			Got:       len(lags),
		}
	}
	return nil
}

// Trim slices every item from the point where the content shared by
// all items begins (lag_i - min(lags)) and cuts them to the shortest
// resulting length, so all results are of equal length.
func Trim[T Timeline[T]](items []T, lags []int) ([]T, error) {
	if err := checkShape("trim", len(items), lags); err != nil {
		return nil, err
	}

	minLag := slices.Min(lags)
	starts := make([]int, len(items))
	length := -1
	for i, item := range items {
		starts[i] = min(lags[i]-minLag, item.Len())
		if l := item.Len() - starts[i]; length < 0 || l < length {
			length = l
		}
	}

	result := make([]T, len(items))
	for i, item := range items {
		result[i] = item.Slice(starts[i], starts[i]+length)
	}
	return result, nil
}

// LeftPads returns how many samples of silence every item needs in front
// to line up: max(lags) - lag_i.
func LeftPads(lags []int) []int {
	if len(lags) == 0 {
		return nil
	}
	maxLag := slices.Max(lags)
	pads := make([]int, len(lags))
	for i, lag := range lags {
		pads[i] = maxLag - lag
	}
	return pads
}

// Pad inserts silence in front of every item so the shared content
// lines up and appends silence so all items end together. No sample
// is dropped: the resulting length is max_i(len_i + leftPad_i).
func Pad[T Timeline[T]](items []T, lags []int) ([]T, error) {
	if err := checkShape("pad", len(items), lags); err != nil {
		return nil, err
	}

	leftPads := LeftPads(lags)
	total := 0
	for i, item := range items {
		total = max(total, item.Len()+leftPads[i])
	}

	result := make([]T, len(items))
	for i, item := range items {
		result[i] = item.Pad(leftPads[i], total-item.Len()-leftPads[i])
	}
	return result, nil
}

// StartTimes converts offsets (seconds) into the position within each
// source where the shared timeline begins; it is the time-domain
// counterpart of the Trim start points.
func StartTimes(offsets []float64) []float64 {
	if len(offsets) == 0 {
		return nil
	}
	minOffset := slices.Min(offsets)
	starts := make([]float64, len(offsets))
	for i, offset := range offsets {
		starts[i] = offset - minOffset
	}
	return starts
}

package planar

import (
	"fmt"
)

// Unplanarize interleaves per-channel slices of equal length into
// a single slice (L R L R ...).
func Unplanarize[T any](input [][]T) ([]T, error) {
	if len(input) == 0 {
		return nil, nil
	}
	samplesPerChan := len(input[0])
	for ch, samples := range input {
		if len(samples) != samplesPerChan {
			return nil, fmt.Errorf("the lengths of channels #0 and #%d are not equal: %d != %d", ch, samplesPerChan, len(samples))
		}
	}

	channels := len(input)
	output := make([]T, samplesPerChan*channels)
	for ch, samples := range input {
		for samplePos, sample := range samples {
			output[samplePos*channels+ch] = sample
		}
	}
	return output, nil
}

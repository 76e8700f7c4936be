package planar

import (
	"fmt"

	"github.com/xaionaro-go/avsync/pkg/audio"
)

// Planarize splits interleaved samples (L R L R ...) into one slice
// per channel (L L ... / R R ...).
func Planarize[T any](channels audio.Channel, input []T) ([][]T, error) {
	if channels == 0 {
		return nil, fmt.Errorf("the amount of channels must be positive")
	}
	if len(input)%int(channels) != 0 {
		return nil, fmt.Errorf("expected an input length that is a multiple of %d, but received %d", channels, len(input))
	}

	samplesPerChan := len(input) / int(channels)
	output := make([][]T, channels)
	for ch := range output {
		output[ch] = make([]T, samplesPerChan)
	}
	for samplePos := 0; samplePos < samplesPerChan; samplePos++ {
		inIdxOffset := samplePos * int(channels)
		for ch := 0; ch < int(channels); ch++ {
			output[ch][samplePos] = input[inIdxOffset+ch]
		}
	}
	return output, nil
}

package audiofile

import (
	"fmt"

	"github.com/xaionaro-go/avsync/pkg/audio"
)

// LoadError means that an input file is missing or cannot be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load '%s': %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SampleRateMismatchError is returned (wrapped into a LoadError) when
// the loaded tracks have different sample rates and no target rate was
// requested.
type SampleRateMismatchError struct {
	Path     string
	Expected audio.SampleRate
	Got      audio.SampleRate
}

func (e *SampleRateMismatchError) Error() string {
	return fmt.Sprintf("the sample rate of '%s' is %d Hz, but the first track is %d Hz; set a target sample rate to resample explicitly", e.Path, e.Got, e.Expected)
}

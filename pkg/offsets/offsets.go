// Package offsets persists the per-source alignment offsets of a session,
// so that later stages can reuse them instead of re-estimating lags.
package offsets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xaionaro-go/avsync/pkg/artifact"
)

const DefaultFileName = "offsets.json"

// Record maps a source identifier to its offset in seconds.
type Record map[string]float64

func New(names []string, offsets []float64) (Record, error) {
	if len(names) != len(offsets) {
		return nil, fmt.Errorf("got %d names for %d offsets", len(names), len(offsets))
	}
	r := make(Record, len(names))
	for i, name := range names {
		if _, ok := r[name]; ok {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		r[name] = offsets[i]
	}
	return r, nil
}

// Covers reports whether the record has an offset for every given name.
func (r Record) Covers(names []string) bool {
	for _, name := range names {
		if _, ok := r[name]; !ok {
			return false
		}
	}
	return true
}

// Offsets returns the offsets in the order of the given names.
func (r Record) Offsets(names []string) ([]float64, error) {
	result := make([]float64, len(names))
	for i, name := range names {
		v, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("no offset for source %q", name)
		}
		result[i] = v
	}
	return result, nil
}

func Save(path string, r Record) error {
	return artifact.WriteFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("unable to encode the offsets: %w", err)
		}
		return nil
	})
}

func Load(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return r, nil
}

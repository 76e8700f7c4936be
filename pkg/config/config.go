// Package config defines the configuration of the alignment pipeline and
// resolves it from the defaults, a YAML file and the command line flags.
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/xaionaro-go/avsync/pkg/align"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/interpolation"
	"github.com/xaionaro-go/avsync/pkg/interpolation/fourier"
	"github.com/xaionaro-go/avsync/pkg/syncer"
	"github.com/xaionaro-go/avsync/pkg/syncer/implementations/fft"
	"github.com/xaionaro-go/avsync/pkg/syncer/implementations/gccphat"
	"github.com/xaionaro-go/avsync/pkg/transcode"
	"gopkg.in/yaml.v3"
)

type CorrelatorKind string

const (
	CorrelatorFFT     = CorrelatorKind("fft")
	CorrelatorGCCPHAT = CorrelatorKind("gccphat")
)

func (k CorrelatorKind) New() (syncer.Correlator, error) {
	switch k {
	case CorrelatorFFT:
		return fft.New(), nil
	case CorrelatorGCCPHAT:
		return gccphat.New(), nil
	default:
		return nil, fmt.Errorf("unknown correlator %q, expected %q or %q", k, CorrelatorFFT, CorrelatorGCCPHAT)
	}
}

type InterpolatorKind string

const (
	InterpolatorFourier = InterpolatorKind("fourier")
	InterpolatorLinear  = InterpolatorKind("linear")
)

func (k InterpolatorKind) New() (interpolation.Interpolator, error) {
	switch k {
	case InterpolatorFourier:
		return fourier.New(), nil
	case InterpolatorLinear:
		return interpolation.NewLinear(), nil
	default:
		return nil, fmt.Errorf("unknown interpolator %q, expected %q or %q", k, InterpolatorFourier, InterpolatorLinear)
	}
}

type Audio struct {
	Mode     align.Mode `yaml:"mode"`
	Mono     bool       `yaml:"mono"`
	BitDepth int        `yaml:"bit_depth"`

	// TargetSampleRate, if set, makes the loader resample every input
	// to it; otherwise inputs with different rates are an error.
	TargetSampleRate audio.SampleRate `yaml:"target_sample_rate"`

	// MinDropout is the minimal length (in samples) of a run of digital
	// silence to be repaired before the correlation; 0 disables repair.
	MinDropout   int              `yaml:"min_dropout"`
	Interpolator InterpolatorKind `yaml:"interpolator"`
}

type Lag struct {
	Correlator      CorrelatorKind  `yaml:"correlator"`
	Strategy        syncer.Strategy `yaml:"strategy"`
	Bounds          []*syncer.Bound `yaml:"bounds"`
	BoundsTolerance float64         `yaml:"bounds_tolerance"`
	MaxLag          time.Duration   `yaml:"max_lag"`
}

func (l Lag) Params() syncer.Params {
	return syncer.Params{
		Strategy:        l.Strategy,
		Bounds:          l.Bounds,
		BoundsTolerance: l.BoundsTolerance,
		MaxLag:          l.MaxLag,
	}
}

type Session struct {
	WriteOffsets bool `yaml:"write_offsets"`
	Workers      int  `yaml:"workers"`
}

type RunDevice struct {
	Name  string        `yaml:"name"`
	Bound *syncer.Bound `yaml:"bound"`
}

type Runs struct {
	// Devices are the per-device input directories ("<name> <device>")
	// in the order of the output channels; the first one is the base.
	Devices         []RunDevice `yaml:"devices"`
	Pattern         string      `yaml:"pattern"`
	BoundsTolerance float64     `yaml:"bounds_tolerance"`
	Mode            align.Mode  `yaml:"mode"`
	ChannelsDir     string      `yaml:"channels_dir"`
}

type Config struct {
	Audio     Audio            `yaml:"audio"`
	Lag       Lag              `yaml:"lag"`
	Session   Session          `yaml:"session"`
	Runs      Runs             `yaml:"runs"`
	Transcode transcode.Config `yaml:"transcode"`
	Reprocess bool             `yaml:"reprocess"`
}

func Default() Config {
	return Config{
		Audio: Audio{
			Mode:         align.ModePad,
			BitDepth:     16,
			MinDropout:   256,
			Interpolator: InterpolatorFourier,
		},
		Lag: Lag{
			Correlator: CorrelatorFFT,
			Strategy:   syncer.StrategyReference,
		},
		Session: Session{
			WriteOffsets: true,
			Workers:      runtime.NumCPU(),
		},
		Runs: Runs{
			Devices: []RunDevice{
				{Name: "Phone"},
				{Name: "Watch", Bound: &syncer.Bound{Min: 1, Max: 40001}},
			},
			Pattern:         `_run(\d*?)_`,
			BoundsTolerance: 0.75,
			Mode:            align.ModePad,
			ChannelsDir:     "channels",
		},
		Transcode: transcode.DefaultConfig(),
	}
}

// LoadFile reads the YAML file on top of 'cfg': keys missing in the file
// keep the values they had.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open the config file '%s': %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("unable to parse the config file '%s': %w", path, err)
	}
	return nil
}

func (cfg Config) Validate() error {
	var mode align.Mode
	if err := mode.Set(string(cfg.Audio.Mode)); err != nil {
		return fmt.Errorf("audio.mode: %w", err)
	}
	switch cfg.Audio.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("audio.bit_depth: %d is not one of 16, 24, 32", cfg.Audio.BitDepth)
	}
	if cfg.Audio.MinDropout < 0 {
		return fmt.Errorf("audio.min_dropout must not be negative: %d", cfg.Audio.MinDropout)
	}
	if _, err := cfg.Audio.Interpolator.New(); err != nil {
		return fmt.Errorf("audio.interpolator: %w", err)
	}
	if _, err := cfg.Lag.Correlator.New(); err != nil {
		return fmt.Errorf("lag.correlator: %w", err)
	}
	if err := cfg.Lag.Params().Validate(len(cfg.Lag.Bounds)); err != nil {
		return fmt.Errorf("lag: %w", err)
	}
	if cfg.Session.Workers < 1 {
		return fmt.Errorf("session.workers must be positive: %d", cfg.Session.Workers)
	}
	if len(cfg.Runs.Devices) < 1 {
		return fmt.Errorf("runs.devices: no devices")
	}
	if _, err := regexp.Compile(cfg.Runs.Pattern); err != nil {
		return fmt.Errorf("runs.pattern: %w", err)
	}
	if err := mode.Set(string(cfg.Runs.Mode)); err != nil {
		return fmt.Errorf("runs.mode: %w", err)
	}
	return nil
}

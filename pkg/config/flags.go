package config

import (
	"github.com/spf13/pflag"
)

type flagBinding struct {
	name  string
	apply func(dst, src *Config)
}

// Flags are the command line flags that override the configuration.
type Flags struct {
	flagSet  *pflag.FlagSet
	values   Config
	bindings []flagBinding
}

// RegisterFlags adds the configuration flags to the flag set. Only the
// flags the user actually sets override the config file (see Apply).
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{flagSet: fs, values: Default()}
	v := &f.values

	f.add("mode", func(dst, src *Config) { dst.Audio.Mode = src.Audio.Mode })
	fs.Var(&v.Audio.Mode, "mode", "alignment mode: pad or trim")
	f.add("mono", func(dst, src *Config) { dst.Audio.Mono = src.Audio.Mono })
	fs.BoolVar(&v.Audio.Mono, "mono", v.Audio.Mono, "mix the aligned tracks down to mono instead of overlaying their channels")
	f.add("bit-depth", func(dst, src *Config) { dst.Audio.BitDepth = src.Audio.BitDepth })
	fs.IntVar(&v.Audio.BitDepth, "bit-depth", v.Audio.BitDepth, "bit depth of the written WAV files: 16, 24 or 32")
	f.add("sample-rate", func(dst, src *Config) { dst.Audio.TargetSampleRate = src.Audio.TargetSampleRate })
	fs.Uint32Var((*uint32)(&v.Audio.TargetSampleRate), "sample-rate", uint32(v.Audio.TargetSampleRate), "resample all inputs to this rate; 0 requires equal input rates")
	f.add("min-dropout", func(dst, src *Config) { dst.Audio.MinDropout = src.Audio.MinDropout })
	fs.IntVar(&v.Audio.MinDropout, "min-dropout", v.Audio.MinDropout, "repair runs of digital silence at least this many samples long before the correlation; 0 disables")
	f.add("interpolator", func(dst, src *Config) { dst.Audio.Interpolator = src.Audio.Interpolator })
	fs.StringVar((*string)(&v.Audio.Interpolator), "interpolator", string(v.Audio.Interpolator), "drop-out interpolator: fourier or linear")

	f.add("correlator", func(dst, src *Config) { dst.Lag.Correlator = src.Lag.Correlator })
	fs.StringVar((*string)(&v.Lag.Correlator), "correlator", string(v.Lag.Correlator), "correlator: fft or gccphat")
	f.add("strategy", func(dst, src *Config) { dst.Lag.Strategy = src.Lag.Strategy })
	fs.Var(&v.Lag.Strategy, "strategy", "lag estimation strategy: reference or pairwise")
	f.add("bounds-tolerance", func(dst, src *Config) { dst.Lag.BoundsTolerance = src.Lag.BoundsTolerance })
	fs.Float64Var(&v.Lag.BoundsTolerance, "bounds-tolerance", v.Lag.BoundsTolerance, "relative tolerance of the lag bounds; 0 makes them strict")
	f.add("max-lag", func(dst, src *Config) { dst.Lag.MaxLag = src.Lag.MaxLag })
	fs.DurationVar(&v.Lag.MaxLag, "max-lag", v.Lag.MaxLag, "mark larger lags as unreliable; 0 disables")

	f.add("offsets", func(dst, src *Config) { dst.Session.WriteOffsets = src.Session.WriteOffsets })
	fs.BoolVar(&v.Session.WriteOffsets, "offsets", v.Session.WriteOffsets, "save the offsets between the recordings")
	f.add("workers", func(dst, src *Config) { dst.Session.Workers = src.Session.Workers })
	fs.IntVar(&v.Session.Workers, "workers", v.Session.Workers, "amount of sessions processed in parallel")

	f.add("ffmpeg", func(dst, src *Config) { dst.Transcode.FFmpegPath = src.Transcode.FFmpegPath })
	fs.StringVar(&v.Transcode.FFmpegPath, "ffmpeg", v.Transcode.FFmpegPath, "path to ffmpeg")
	f.add("ffprobe", func(dst, src *Config) { dst.Transcode.FFprobePath = src.Transcode.FFprobePath })
	fs.StringVar(&v.Transcode.FFprobePath, "ffprobe", v.Transcode.FFprobePath, "path to ffprobe")

	f.add("reprocess", func(dst, src *Config) { dst.Reprocess = src.Reprocess })
	fs.BoolVarP(&v.Reprocess, "reprocess", "r", v.Reprocess, "rebuild the outputs even if they already exist")
	return f
}

func (f *Flags) add(name string, apply func(dst, src *Config)) {
	f.bindings = append(f.bindings, flagBinding{name: name, apply: apply})
}

// Apply copies the values of the changed flags into 'cfg'.
func (f *Flags) Apply(cfg *Config) {
	for _, b := range f.bindings {
		if fl := f.flagSet.Lookup(b.name); fl != nil && fl.Changed {
			b.apply(cfg, &f.values)
		}
	}
}

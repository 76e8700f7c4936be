package config

import (
	"github.com/xaionaro-go/avsync/pkg/syncer"
)

// Resolve layers the configuration: the flags the user set override
// the config file, which overrides the defaults. An empty 'path' means
// no config file; a nil 'flags' means no flags.
func Resolve(defaults Config, path string, flags *Flags) (Config, error) {
	cfg := defaults
	cfg.Lag.Bounds = append([]*syncer.Bound(nil), defaults.Lag.Bounds...)
	cfg.Runs.Devices = append([]RunDevice(nil), defaults.Runs.Devices...)
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if flags != nil {
		flags.Apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Package config loads the handful of VM tuning knobs Ember exposes:
// the call-frame ceiling and the value stack's initial capacity, whose
// defaults are the constants vm.FramesMax/vm.StackMax. Config lets an
// operator lower those values without a rebuild (vm.NewWithLimits
// treats anything above the defaults as the defaults), read from an optional YAML
// file with environment-variable overrides on top, the way
// mna-nenuphar's maincmd layers flags over defaults.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds the VM tuning knobs. Zero values mean "use the package
// default" (vm.FramesMax / vm.StackMax); Load never returns a Config
// with a negative field.
type Config struct {
	MaxFrames int `yaml:"max_frames" env:"EMBER_MAX_FRAMES"`
	MaxStack  int `yaml:"max_stack" env:"EMBER_MAX_STACK"`
}

// Default returns the zero-value configuration: defer every ceiling to
// the vm package's own constants.
func Default() Config {
	return Config{}
}

// Load reads path (if non-empty and present) as YAML, then applies any
// EMBER_-prefixed environment overrides on top. A missing path is not
// an error — Load just falls back to Default() before applying env
// overrides, since the environment layer alone is a supported
// configuration mode (e.g. in a container with no config file mounted).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		case os.IsNotExist(err):
			// fall through with defaults
		default:
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxFrames < 0 {
		cfg.MaxFrames = 0
	}
	if cfg.MaxStack < 0 {
		cfg.MaxStack = 0
	}
	return cfg, nil
}

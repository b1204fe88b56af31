// Package config loads medconv runtime configuration from a yaml file
// with sensible defaults for every field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents medconv configuration options.
type Config struct {
	// DataDir is the root directory of the raw dataset.
	DataDir string `yaml:"data_dir"`

	// OutputDir is the directory where session archives are written.
	OutputDir string `yaml:"output_dir"`

	// MaxWorkers is the number of sessions converted concurrently in a
	// batch run (0 = one worker per CPU).
	MaxWorkers int `yaml:"max_workers"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Overwrite replaces existing output files instead of failing.
	Overwrite bool `yaml:"overwrite"`

	// StubTest converts only the first few sessions per cohort, for
	// quick end-to-end checks of a fresh dataset drop.
	StubTest bool `yaml:"stub_test"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    ".",
		OutputDir:  "conversion_nwb",
		MaxWorkers: 4,
		LogLevel:   "info",
		Overwrite:  false,
		StubTest:   false,
	}
}

// Load reads configuration from a yaml file, applying defaults for any
// field the file omits. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

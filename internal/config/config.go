// Package config loads the per-repository quality configuration file
// (quality.yml) that tunes scoring weights, thresholds, and test commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigMissing is returned when no quality configuration file exists.
// Callers treat it as "skip this run", not as a failure.
var ErrConfigMissing = errors.New("config: quality config file not found")

// Weights holds the per-category point budget. All values default to the
// standard 100-point split and can be overridden per repository.
type Weights struct {
	Complexity   float64 `yaml:"complexity"`
	Smells       float64 `yaml:"smells"`
	Duplication  float64 `yaml:"duplication"`
	Coverage     float64 `yaml:"coverage"`
	TestResults  float64 `yaml:"test_results"`
	UnitPresence float64 `yaml:"unit_presence"`
	E2EPresence  float64 `yaml:"e2e_presence"`
}

// Tests configures test execution and coverage report locations.
type Tests struct {
	Enabled       bool              `yaml:"enabled"`
	Setup         []string          `yaml:"setup"`
	Command       string            `yaml:"command"`
	Commands      map[string]string `yaml:"commands"`
	CoverageFile  string            `yaml:"coverage_file"`
	CoverageFiles map[string]string `yaml:"coverage_files"`
}

// E2E configures end-to-end test requirements.
type E2E struct {
	Required bool `yaml:"required"`
}

// Config is the recognized per-repository configuration surface.
type Config struct {
	Languages    []string `yaml:"languages"`
	Tests        Tests    `yaml:"tests"`
	E2E          E2E      `yaml:"e2e"`
	Weights      Weights  `yaml:"weights"`
	Threshold    int      `yaml:"threshold"`
	MinUnitTests int      `yaml:"min_unit_tests"`
}

// Default returns the configuration used when a repository provides no
// overrides: 15/15/10 code quality, 20/10 test health, 20/10 presence,
// pass threshold 70.
func Default() Config {
	return Config{
		Weights: Weights{
			Complexity:   15,
			Smells:       15,
			Duplication:  10,
			Coverage:     20,
			TestResults:  10,
			UnitPresence: 20,
			E2EPresence:  10,
		},
		Threshold:    70,
		MinUnitTests: 3,
	}
}

// Load reads and parses a quality config file. A missing path returns
// ErrConfigMissing; a present but malformed file returns defaults along
// with the parse error so the run can proceed with a recorded warning.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), ErrConfigMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), ErrConfigMissing
		}
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes config YAML, applying defaults for anything unset.
func Parse(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Weights.Complexity == 0 {
		cfg.Weights.Complexity = def.Weights.Complexity
	}
	if cfg.Weights.Smells == 0 {
		cfg.Weights.Smells = def.Weights.Smells
	}
	if cfg.Weights.Duplication == 0 {
		cfg.Weights.Duplication = def.Weights.Duplication
	}
	if cfg.Weights.Coverage == 0 {
		cfg.Weights.Coverage = def.Weights.Coverage
	}
	if cfg.Weights.TestResults == 0 {
		cfg.Weights.TestResults = def.Weights.TestResults
	}
	if cfg.Weights.UnitPresence == 0 {
		cfg.Weights.UnitPresence = def.Weights.UnitPresence
	}
	if cfg.Weights.E2EPresence == 0 {
		cfg.Weights.E2EPresence = def.Weights.E2EPresence
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinUnitTests == 0 {
		cfg.MinUnitTests = def.MinUnitTests
	}
}

// Package config handles loading and saving of run settings.
package config

import (
	"fmt"

	"github.com/Faultbox/modgrow/internal/logger"
)

// Config holds all settings of a growth run.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Search  SearchConfig  `yaml:"search"`
	Random  RandomConfig  `yaml:"random"`
	Toolbox ToolboxConfig `yaml:"toolbox"`
	Grow    GrowConfig    `yaml:"grow"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// SearchConfig tunes the glueing search.
type SearchConfig struct {
	RotationSteps       int     `yaml:"rotation_steps"`
	OppositeThreshold   float64 `yaml:"opposite_threshold"`
	NormalizeCosts      bool    `yaml:"normalize_costs"`
	RequireEqualValence bool    `yaml:"require_equal_valence"`
	CandidatePolicy     string  `yaml:"candidate_policy"` // "poles" or "all"
	RandomPlacement     bool    `yaml:"random_placement"`
}

// RandomConfig seeds the only random source of a run.
type RandomConfig struct {
	Seed int64 `yaml:"seed"`
}

// ToolboxConfig points at the module list.
type ToolboxConfig struct {
	Path string `yaml:"path"`
}

// GrowConfig bounds a growth run.
type GrowConfig struct {
	MaxSteps int     `yaml:"max_steps"` // 0 = until the toolbox is empty
	HostSize float64 `yaml:"host_size"` // edge of the starting cube
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Search: SearchConfig{
			RotationSteps:       16,
			OppositeThreshold:   -1e-5,
			NormalizeCosts:      false,
			RequireEqualValence: true,
			CandidatePolicy:     "poles",
			RandomPlacement:     true,
		},
		Random: RandomConfig{
			Seed: 1,
		},
		Toolbox: ToolboxConfig{
			Path: "toolbox.yaml",
		},
		Grow: GrowConfig{
			MaxSteps: 0,
			HostSize: 2,
		},
	}
}

// Validate reports the first setting out of range.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch {
	case c.Search.RotationSteps < 1:
		return fmt.Errorf("search.rotation_steps must be at least 1, got %d", c.Search.RotationSteps)
	case c.Search.OppositeThreshold > 0:
		return fmt.Errorf("search.opposite_threshold must not be positive, got %g", c.Search.OppositeThreshold)
	case c.Search.CandidatePolicy != "poles" && c.Search.CandidatePolicy != "all":
		return fmt.Errorf("search.candidate_policy must be poles or all, got %q", c.Search.CandidatePolicy)
	case c.Grow.MaxSteps < 0:
		return fmt.Errorf("grow.max_steps must not be negative, got %d", c.Grow.MaxSteps)
	case c.Grow.HostSize <= 0:
		return fmt.Errorf("grow.host_size must be positive, got %g", c.Grow.HostSize)
	}
	return nil
}

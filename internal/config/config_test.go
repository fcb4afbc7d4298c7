package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test search defaults
	if cfg.Search.RotationSteps != 16 {
		t.Errorf("expected 16 rotation steps, got %d", cfg.Search.RotationSteps)
	}
	if cfg.Search.OppositeThreshold != -1e-5 {
		t.Errorf("expected opposite threshold -1e-5, got %g", cfg.Search.OppositeThreshold)
	}
	if !cfg.Search.RequireEqualValence {
		t.Error("expected require_equal_valence to be true by default")
	}
	if cfg.Search.CandidatePolicy != "poles" {
		t.Errorf("expected candidate policy 'poles', got %s", cfg.Search.CandidatePolicy)
	}

	// Test run defaults
	if cfg.Random.Seed != 1 {
		t.Errorf("expected seed 1, got %d", cfg.Random.Seed)
	}
	if cfg.Grow.HostSize != 2 {
		t.Errorf("expected host size 2, got %g", cfg.Grow.HostSize)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)

	yamlContent := `
search:
  rotation_steps: 8
  normalize_costs: true
  require_equal_valence: false
  candidate_policy: all

random:
  seed: 42

toolbox:
  path: "parts.yaml"

grow:
  max_steps: 20

logging:
  level: "debug"
  log_file: "grow.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Search.RotationSteps != 8 {
		t.Errorf("expected 8 rotation steps, got %d", cfg.Search.RotationSteps)
	}
	if !cfg.Search.NormalizeCosts {
		t.Error("expected normalize_costs to be true")
	}
	if cfg.Search.RequireEqualValence {
		t.Error("expected require_equal_valence to be false")
	}
	if cfg.Search.CandidatePolicy != "all" {
		t.Errorf("expected candidate policy 'all', got %s", cfg.Search.CandidatePolicy)
	}
	// untouched keys keep their defaults
	if cfg.Search.OppositeThreshold != -1e-5 {
		t.Errorf("expected default threshold, got %g", cfg.Search.OppositeThreshold)
	}
	if cfg.Random.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Random.Seed)
	}
	if cfg.Toolbox.Path != "parts.yaml" {
		t.Errorf("expected toolbox parts.yaml, got %s", cfg.Toolbox.Path)
	}
	if cfg.Grow.MaxSteps != 20 {
		t.Errorf("expected max steps 20, got %d", cfg.Grow.MaxSteps)
	}
	if cfg.Logging.LogFile != "grow.log" {
		t.Errorf("expected log file 'grow.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
search:
  rotation_steps: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/modgrow.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"rotation steps", func(c *Config) { c.Search.RotationSteps = 0 }},
		{"threshold", func(c *Config) { c.Search.OppositeThreshold = 0.5 }},
		{"policy", func(c *Config) { c.Search.CandidatePolicy = "some" }},
		{"max steps", func(c *Config) { c.Grow.MaxSteps = -1 }},
		{"host size", func(c *Config) { c.Grow.HostSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("grow:\n  max_steps: 3\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find modgrow.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"--debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "seed and steps",
			args: []string{"--seed", "7", "--steps", "12"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Random.Seed != 7 {
					t.Errorf("expected seed 7, got %d", cfg.Random.Seed)
				}
				if cfg.Grow.MaxSteps != 12 {
					t.Errorf("expected max steps 12, got %d", cfg.Grow.MaxSteps)
				}
			},
		},
		{
			name: "explicit zero seed",
			args: []string{"--seed", "0"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Random.Seed != 0 {
					t.Errorf("expected seed 0, got %d", cfg.Random.Seed)
				}
			},
		},
		{
			name: "toolbox and host size",
			args: []string{"--toolbox", "t.yaml", "--host-size", "3.5"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Toolbox.Path != "t.yaml" {
					t.Errorf("expected toolbox t.yaml, got %s", cfg.Toolbox.Path)
				}
				if cfg.Grow.HostSize != 3.5 {
					t.Errorf("expected host size 3.5, got %g", cfg.Grow.HostSize)
				}
			},
		},
		{
			name: "unset flags keep values",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Random.Seed != 1 {
					t.Errorf("expected default seed 1, got %d", cfg.Random.Seed)
				}
				if cfg.Toolbox.Path != "toolbox.yaml" {
					t.Errorf("expected default toolbox, got %s", cfg.Toolbox.Path)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f := BindFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "run.yaml")

	yamlContent := `
random:
  seed: 5
grow:
  max_steps: 9
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", configPath, "--seed", "11"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Seed should be from flag (11), not file (5)
	if cfg.Random.Seed != 11 {
		t.Errorf("expected seed 11 from flag, got %d", cfg.Random.Seed)
	}

	// Steps should be from file (9) since no flag override
	if cfg.Grow.MaxSteps != 9 {
		t.Errorf("expected max steps 9 from file, got %d", cfg.Grow.MaxSteps)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("search:\n  candidate_policy: nearest\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", configPath}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if _, err := Load(f); err == nil {
		t.Error("expected invalid candidate policy to fail")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Random.Seed = 99
	cfg.Search.CandidatePolicy = "all"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	got := Default()
	if err := loadFromFile(got, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if got.Random.Seed != 99 || got.Search.CandidatePolicy != "all" {
		t.Errorf("round trip lost values: %+v", got)
	}
}

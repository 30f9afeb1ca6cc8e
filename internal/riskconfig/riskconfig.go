// Package riskconfig loads named risk presets from a YAML file. Presets
// complement the built-in conservative/moderate/aggressive levels with
// deployment-specific ones.
package riskconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the preset file.
type Config struct {
	Presets []Preset `yaml:"presets"`
}

// Preset is one named risk level.
type Preset struct {
	Name    string  `yaml:"name" json:"name"`
	RiskPct float64 `yaml:"risk_pct" json:"risk_pct"`
}

// Load reads and validates a preset file. Unknown fields fail fast so
// typos in deployed config never silently no-op.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode risk presets: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks preset names and percentages.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Presets))
	for i, p := range cfg.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("preset %q: duplicate name", p.Name)
		}
		seen[p.Name] = true

		if p.RiskPct <= 0 || p.RiskPct > 100 {
			return fmt.Errorf("preset %q: risk_pct must be in (0, 100], got %v", p.Name, p.RiskPct)
		}
	}
	return nil
}

// Default returns the built-in preset set.
func Default() *Config {
	return &Config{
		Presets: []Preset{
			{Name: "conservative", RiskPct: 0.25},
			{Name: "moderate", RiskPct: 0.5},
			{Name: "aggressive", RiskPct: 1.0},
		},
	}
}

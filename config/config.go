package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chpsim/core/dispatch"
	"github.com/kilianp07/chpsim/core/metrics"
	"github.com/kilianp07/chpsim/core/model"
	"github.com/kilianp07/chpsim/core/scenario"
)

// Config is the full simulator configuration: the plant's unit set, the
// scenarios to run and the ambient settings. Everything is explicit
// state passed into the runner, never a process-wide registry.
type Config struct {
	Units     []UnitConfig        `json:"units"`
	Scenarios []scenario.Scenario `json:"scenarios"`
	Optimizer dispatch.Config     `json:"optimizer"`
	Runner    scenario.Config     `json:"runner"`
	Metrics   metrics.Config      `json:"metrics"`
}

// Load reads a YAML or JSON configuration file with optional CHP_
// environment overrides and validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CHP_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "chp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Optimizer.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration; any violation is fatal
// before a run starts.
func (c *Config) Validate() error {
	units, err := c.BuildUnits()
	if err != nil {
		return err
	}
	if err := model.ValidateUnits(units); err != nil {
		return &model.ConfigError{Err: err}
	}
	if len(c.Scenarios) == 0 {
		return &model.ConfigError{Err: fmt.Errorf("at least one scenario is required")}
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		if err := sc.Validate(); err != nil {
			return &model.ConfigError{Err: err}
		}
		if seen[sc.Name] {
			return &model.ConfigError{Err: fmt.Errorf("duplicate scenario name %q", sc.Name)}
		}
		seen[sc.Name] = true
	}
	if err := c.Metrics.Validate(); err != nil {
		return &model.ConfigError{Err: err}
	}
	return nil
}

// BuildUnits converts the unit configurations into domain units.
func (c *Config) BuildUnits() ([]model.Unit, error) {
	units := make([]model.Unit, 0, len(c.Units))
	for _, uc := range c.Units {
		u, err := uc.Build()
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chpsim/core/model"
)

const validYAML = `
units:
  - name: gt1
    kind: gas_turbine
    min_power_mw: 3
    max_power_mw: 6.55
    elec_eff: 0.40
    heat_eff: 0.45
    derate:
      base_mw: 6.55
      slope_mw_per_c: 0.045
    ramp_mw: 1.5
  - name: gb1
    kind: gas_boiler
    max_heat_mw: 20
    heat_eff: 0.9
  - name: eb1
    kind: e_boiler
    max_heat_mw: 10
    heat_eff: 0.99
  - name: hr1
    kind: hrsg
    max_heat_mw: 5
    heat_eff: 0.95
scenarios:
  - name: base
    description: reference case
  - name: taxed
    offtake_tax: 14.5
runner:
  stop_on_infeasible: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Units, 4)
	require.Len(t, cfg.Scenarios, 2)

	units, err := cfg.BuildUnits()
	require.NoError(t, err)
	require.Equal(t, model.GasTurbine, units[0].Kind)
	require.NotNil(t, units[0].Derate)
	require.Equal(t, 1.5, units[0].RampMW)
	// Gas units pick up the default emission factor.
	require.Equal(t, DefaultCO2Factor, units[0].CO2Factor)
	require.Equal(t, DefaultCO2Factor, units[1].CO2Factor)
	// The e-boiler burns no gas.
	require.Zero(t, units[2].CO2Factor)

	// Optimizer defaults applied.
	require.Equal(t, 10000.0, cfg.Optimizer.GridLimitMW)
	require.Equal(t, 1e-7, cfg.Optimizer.Tolerance)
}

func TestLoadRejectsInvalidUnit(t *testing.T) {
	bad := `
units:
  - name: gt1
    kind: gas_turbine
    min_power_mw: 8
    max_power_mw: 6.55
    elec_eff: 0.40
    heat_eff: 0.45
scenarios:
  - name: base
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadRejectsMissingScenarios(t *testing.T) {
	bad := `
units:
  - name: gb1
    kind: gas_boiler
    max_heat_mw: 20
    heat_eff: 0.9
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
}

func TestLoadRejectsDuplicateScenario(t *testing.T) {
	bad := `
units:
  - name: gb1
    kind: gas_boiler
    max_heat_mw: 20
    heat_eff: 0.9
scenarios:
  - name: base
  - name: base
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CHP_runner__stop_on_infeasible", "true")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.True(t, cfg.Runner.StopOnInfeasible)
}

func TestUnitConfigEfficiencyCurve(t *testing.T) {
	uc := UnitConfig{
		Name: "gt1", Kind: "gas_turbine",
		MinPowerMW: 3, MaxPowerMW: 6.55,
		ElecCurve: []EfficiencyPoint{{Load: 0.4, Eff: 0.38}, {Load: 1, Eff: 0.42}},
		HeatCurve: []EfficiencyPoint{{Load: 0.4, Eff: 0.50}, {Load: 1, Eff: 0.45}},
	}
	u, err := uc.Build()
	require.NoError(t, err)
	require.Len(t, u.ElecEff, 2)
	eff, err := u.ElecEff.At(0.7)
	require.NoError(t, err)
	require.InDelta(t, 0.40, eff, 1e-12)
}

package config

import (
	"github.com/kilianp07/chpsim/core/model"
)

// DefaultCO2Factor is tonnes of CO2 per MWh of natural gas burned.
const DefaultCO2Factor = 0.1824

// EfficiencyPoint mirrors model.CurvePoint for configuration files.
type EfficiencyPoint struct {
	Load float64 `json:"load"`
	Eff  float64 `json:"eff"`
}

// DeratingConfig describes a linear temperature derating
// capacity = base_mw - slope_mw_per_c * temperature.
type DeratingConfig struct {
	BaseMW  float64 `json:"base_mw"`
	SlopeMW float64 `json:"slope_mw_per_c"`
}

// UnitConfig describes one conversion asset. Efficiencies may be given
// as a full curve or as a single constant value.
type UnitConfig struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	MinPowerMW float64           `json:"min_power_mw"`
	MaxPowerMW float64           `json:"max_power_mw"`
	MinHeatMW  float64           `json:"min_heat_mw"`
	MaxHeatMW  float64           `json:"max_heat_mw"`
	ElecEff    float64           `json:"elec_eff"`
	HeatEff    float64           `json:"heat_eff"`
	ElecCurve  []EfficiencyPoint `json:"elec_curve"`
	HeatCurve  []EfficiencyPoint `json:"heat_curve"`
	Derate     *DeratingConfig   `json:"derate"`
	RampMW     float64           `json:"ramp_mw"`
	CO2Factor  *float64          `json:"co2_factor"`
}

// Build converts the configuration into a validated domain unit.
func (uc UnitConfig) Build() (model.Unit, error) {
	u := model.Unit{
		Name:       uc.Name,
		Kind:       model.Kind(uc.Kind),
		MinPowerMW: uc.MinPowerMW,
		MaxPowerMW: uc.MaxPowerMW,
		MinHeatMW:  uc.MinHeatMW,
		MaxHeatMW:  uc.MaxHeatMW,
		ElecEff:    buildCurve(uc.ElecCurve, uc.ElecEff),
		HeatEff:    buildCurve(uc.HeatCurve, uc.HeatEff),
		RampMW:     uc.RampMW,
	}
	if uc.Derate != nil {
		u.Derate = &model.Derating{BaseMW: uc.Derate.BaseMW, SlopeMW: uc.Derate.SlopeMW}
	}
	switch {
	case uc.CO2Factor != nil:
		u.CO2Factor = *uc.CO2Factor
	case u.FuelBased():
		u.CO2Factor = DefaultCO2Factor
	}
	if err := u.Validate(); err != nil {
		return model.Unit{}, &model.ConfigError{Err: err}
	}
	return u, nil
}

func buildCurve(points []EfficiencyPoint, flat float64) model.Curve {
	if len(points) > 0 {
		curve := make(model.Curve, len(points))
		for i, p := range points {
			curve[i] = model.CurvePoint{Load: p.Load, Eff: p.Eff}
		}
		return curve
	}
	if flat > 0 {
		return model.Flat(flat)
	}
	return nil
}

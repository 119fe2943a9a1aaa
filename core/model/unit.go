package model

import (
	"fmt"
	"math"
)

// Kind identifies the conversion technology of a unit.
type Kind string

const (
	GasTurbine     Kind = "gas_turbine"
	GasBoiler      Kind = "gas_boiler"
	ElectricBoiler Kind = "e_boiler"
	HRSG           Kind = "hrsg"
)

// Valid reports whether the kind is one of the supported technologies.
func (k Kind) Valid() bool {
	switch k {
	case GasTurbine, GasBoiler, ElectricBoiler, HRSG:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Derating reduces rated capacity with ambient temperature:
// capacity = Base - Slope * temperature. Both ends of the operating
// envelope scale by the same factor so min <= max holds at every
// feasible temperature.
type Derating struct {
	BaseMW  float64 `json:"base_mw"`
	SlopeMW float64 `json:"slope_mw_per_c"`
}

// FactorAt returns the capacity scaling factor at the given temperature.
func (d Derating) FactorAt(tempC float64) float64 {
	return (d.BaseMW - d.SlopeMW*tempC) / d.BaseMW
}

// Envelope is the temperature-derated operating range of a unit.
// For the gas turbine the heat range is derived from the efficiency
// curves, for boilers and the HRSG it is the configured thermal range.
type Envelope struct {
	MinPowerMW float64
	MaxPowerMW float64
	MinHeatMW  float64
	MaxHeatMW  float64
}

// Unit is the static description of one energy-conversion asset.
// It is immutable after Validate and all methods are pure.
type Unit struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Electrical generation range, gas turbine only.
	MinPowerMW float64 `json:"min_power_mw"`
	MaxPowerMW float64 `json:"max_power_mw"`

	// Thermal output range, boilers and HRSG.
	MinHeatMW float64 `json:"min_heat_mw"`
	MaxHeatMW float64 `json:"max_heat_mw"`

	// ElecEff converts fuel to electricity (gas turbine). HeatEff
	// converts fuel to heat, or electricity to heat for the e-boiler.
	ElecEff Curve `json:"elec_eff"`
	HeatEff Curve `json:"heat_eff"`

	// Derate scales the electrical envelope with ambient temperature.
	Derate *Derating `json:"derate,omitempty"`

	// RampMW bounds the change of the primary output between
	// consecutive steps. Zero means unlimited.
	RampMW float64 `json:"ramp_mw"`

	// CO2Factor is tonnes of CO2 per MWh of fuel burned.
	CO2Factor float64 `json:"co2_factor"`
}

// HasCommitment reports whether the unit has a nonzero minimum load and
// therefore needs an explicit on/off state in the dispatch problem.
func (u Unit) HasCommitment() bool {
	return u.MinPowerMW > 0 || u.MinHeatMW > 0
}

// FuelBased reports whether the unit burns gas.
func (u Unit) FuelBased() bool {
	return u.Kind == GasTurbine || u.Kind == GasBoiler || u.Kind == HRSG
}

// Validate checks the unit invariants. Violations are configuration
// errors and must abort before any run starts.
func (u Unit) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("unit name is required")
	}
	if !u.Kind.Valid() {
		return fmt.Errorf("unit %s: unknown kind %q", u.Name, u.Kind)
	}
	if u.MinPowerMW < 0 || u.MinHeatMW < 0 {
		return fmt.Errorf("unit %s: negative minimum capacity", u.Name)
	}
	if u.MinPowerMW > u.MaxPowerMW {
		return fmt.Errorf("unit %s: min power %g exceeds max power %g", u.Name, u.MinPowerMW, u.MaxPowerMW)
	}
	if u.MinHeatMW > u.MaxHeatMW {
		return fmt.Errorf("unit %s: min heat %g exceeds max heat %g", u.Name, u.MinHeatMW, u.MaxHeatMW)
	}
	if u.RampMW < 0 {
		return fmt.Errorf("unit %s: negative ramp limit", u.Name)
	}
	if u.CO2Factor < 0 {
		return fmt.Errorf("unit %s: negative CO2 factor", u.Name)
	}
	switch u.Kind {
	case GasTurbine:
		if u.MaxPowerMW <= 0 {
			return fmt.Errorf("unit %s: gas turbine needs a positive max power", u.Name)
		}
		if err := u.ElecEff.Validate(); err != nil {
			return fmt.Errorf("unit %s: electrical efficiency: %w", u.Name, err)
		}
		if err := u.HeatEff.Validate(); err != nil {
			return fmt.Errorf("unit %s: thermal efficiency: %w", u.Name, err)
		}
		minFrac := u.MinPowerMW / u.MaxPowerMW
		if !u.ElecEff.Covers(minFrac, 1) || !u.HeatEff.Covers(minFrac, 1) {
			return fmt.Errorf("unit %s: efficiency curves do not cover the load range [%g, 1]", u.Name, minFrac)
		}
	case GasBoiler, ElectricBoiler, HRSG:
		if u.MaxHeatMW <= 0 {
			return fmt.Errorf("unit %s: needs a positive max heat capacity", u.Name)
		}
		if err := u.HeatEff.Validate(); err != nil {
			return fmt.Errorf("unit %s: thermal efficiency: %w", u.Name, err)
		}
		minFrac := u.MinHeatMW / u.MaxHeatMW
		if !u.HeatEff.Covers(minFrac, 1) {
			return fmt.Errorf("unit %s: efficiency curve does not cover the load range [%g, 1]", u.Name, minFrac)
		}
	}
	if u.Derate != nil && u.Derate.BaseMW <= 0 {
		return fmt.Errorf("unit %s: derating base capacity must be positive", u.Name)
	}
	return nil
}

// CapacityAt returns the operating envelope at the given ambient
// temperature. For the gas turbine the thermal range is derived from
// the efficiency curves at the derated min and max load.
func (u Unit) CapacityAt(tempC float64) (Envelope, error) {
	env := Envelope{
		MinPowerMW: u.MinPowerMW, MaxPowerMW: u.MaxPowerMW,
		MinHeatMW: u.MinHeatMW, MaxHeatMW: u.MaxHeatMW,
	}
	if u.Derate != nil {
		f := u.Derate.FactorAt(tempC)
		if f <= 0 {
			return Envelope{}, fmt.Errorf("unit %s: derating leaves no capacity at %g degC", u.Name, tempC)
		}
		env.MinPowerMW *= f
		env.MaxPowerMW *= f
	}
	if u.Kind == GasTurbine {
		minHeat, err := u.heatAt(env.MinPowerMW, env.MaxPowerMW)
		if err != nil {
			return Envelope{}, err
		}
		maxHeat, err := u.heatAt(env.MaxPowerMW, env.MaxPowerMW)
		if err != nil {
			return Envelope{}, err
		}
		env.MinHeatMW, env.MaxHeatMW = minHeat, maxHeat
	}
	return env, nil
}

// heatAt returns the turbine heat output at electrical output p given
// the derated maximum maxP.
func (u Unit) heatAt(p, maxP float64) (float64, error) {
	if p == 0 {
		return 0, nil
	}
	frac := p / maxP
	elec, err := u.ElecEff.At(frac)
	if err != nil {
		return 0, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	heat, err := u.HeatEff.At(frac)
	if err != nil {
		return 0, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	return p / elec * heat, nil
}

// FuelAt returns the fuel (or electricity, for the e-boiler) consumed
// to sustain the given primary output at the given ambient temperature.
// The primary output is electrical MW for the gas turbine and thermal
// MW for boilers and the HRSG.
func (u Unit) FuelAt(outMW, tempC float64) (float64, error) {
	if outMW == 0 {
		return 0, nil
	}
	if outMW < 0 {
		return 0, fmt.Errorf("unit %s: negative output %g", u.Name, outMW)
	}
	env, err := u.CapacityAt(tempC)
	if err != nil {
		return 0, err
	}
	var frac float64
	var curve Curve
	if u.Kind == GasTurbine {
		frac = outMW / env.MaxPowerMW
		curve = u.ElecEff
	} else {
		frac = outMW / env.MaxHeatMW
		curve = u.HeatEff
	}
	eff, err := curve.At(frac)
	if err != nil {
		return 0, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	return outMW / eff, nil
}

// CostAt returns the operating cost of sustaining the given primary
// output for one step. The price is the fuel price for gas units and
// the electricity price for the e-boiler.
func (u Unit) CostAt(outMW, tempC, price float64) (float64, error) {
	fuel, err := u.FuelAt(outMW, tempC)
	if err != nil {
		return 0, err
	}
	return fuel * price, nil
}

// ValidateUnits checks a whole unit set, including name uniqueness.
func ValidateUnits(units []Unit) error {
	if len(units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		if seen[u.Name] {
			return fmt.Errorf("duplicate unit name %q", u.Name)
		}
		seen[u.Name] = true
	}
	return nil
}

// TotalHeatCapacityAt returns the aggregate maximum thermal output of
// the unit set at the given temperature.
func TotalHeatCapacityAt(units []Unit, tempC float64) float64 {
	var total float64
	for _, u := range units {
		env, err := u.CapacityAt(tempC)
		if err != nil {
			continue
		}
		total += env.MaxHeatMW
	}
	return math.Max(total, 0)
}

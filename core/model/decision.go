package model

// UnitOutput is the chosen operating point of one unit for one step.
type UnitOutput struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"kind"`
	On      bool    `json:"on"`
	PowerMW float64 `json:"power_mw"`
	HeatMW  float64 `json:"heat_mw"`
	FuelMW  float64 `json:"fuel_mw"`
}

// Decision is the dispatch for one timestep. Outputs keeps the unit
// order of the configured unit set so result tables have stable
// columns. Offtake and injection are both nonnegative.
type Decision struct {
	Outputs      []UnitOutput `json:"outputs"`
	OfftakeMW    float64      `json:"grid_offtake_mw"`
	InjectionMW  float64      `json:"grid_injection_mw"`
	CostEUR      float64      `json:"total_cost"`
	Infeasible   bool         `json:"infeasible"`
	SolverFailed bool         `json:"solver_failed"`
}

// TotalPowerMW returns the aggregate electrical generation.
func (d Decision) TotalPowerMW() float64 {
	var total float64
	for _, o := range d.Outputs {
		total += o.PowerMW
	}
	return total
}

// TotalHeatMW returns the aggregate thermal output.
func (d Decision) TotalHeatMW() float64 {
	var total float64
	for _, o := range d.Outputs {
		total += o.HeatMW
	}
	return total
}

// Output returns the output of the named unit, if present.
func (d Decision) Output(name string) (UnitOutput, bool) {
	for _, o := range d.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return UnitOutput{}, false
}

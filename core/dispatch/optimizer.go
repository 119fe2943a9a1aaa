package dispatch

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/chpsim/core/logger"
	"github.com/kilianp07/chpsim/core/model"
)

// chpEpsilon is the tie-break credit per MW of gas turbine output.
// It must stay strictly below any realistic price granularity so it
// only decides between cost-degenerate dispatches.
const chpEpsilon = 1e-6

// fixedSpan is the width below which a variable is pinned and treated
// as a constant instead of an LP column.
const fixedSpan = 1e-9

// Optimizer solves the per-timestep unit commitment and dispatch
// problem. It is stateless between calls; ramp memory is passed in
// explicitly by the caller.
type Optimizer struct {
	cfg Config
	log logger.Logger
}

// New returns an optimizer with the given configuration. A nil logger
// disables logging.
func New(cfg Config, log logger.Logger) *Optimizer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Optimizer{cfg: cfg, log: log}
}

// column describes one unit's contribution to a single commitment
// combination. The LP variable x ranges over [0, span] and the unit's
// primary output is lo + x.
type column struct {
	unit *model.Unit
	on   bool

	lo   float64
	span float64

	basePower, powerCoef float64
	baseHeat, heatCoef   float64
	baseFuel, fuelCoef   float64
	// Electricity drawn from the bus (e-boiler only).
	baseLoad, loadCoef float64

	fuelPrice float64
}

// lpSolve points to the function used to solve each LP. Tests override
// it to simulate solver failures.
var lpSolve = solveLP

// solveLP converts the general-form problem to standard form and runs
// the simplex method. The returned slice holds the original variables.
func solveLP(c []float64, g *mat.Dense, h []float64, a *mat.Dense, b []float64, tol float64) (float64, []float64, error) {
	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return 0, nil, err
	}
	n := len(c)
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return opt, x, nil
}

// Solve returns the cost-minimizing dispatch for one timestep. prev
// maps unit names to the previous primary output and activates ramp
// constraints for units that have a ramp limit; a nil map disables
// them. On infeasibility the returned decision carries all-off outputs
// and the Infeasible flag together with ErrInfeasible or a SolverError.
func (o *Optimizer) Solve(pt model.DemandPricePoint, units []model.Unit, prev map[string]float64) (model.Decision, error) {
	envs := make([]model.Envelope, len(units))
	for i, u := range units {
		env, err := u.CapacityAt(pt.AmbientTempC)
		if err != nil {
			return model.Decision{}, err
		}
		envs[i] = env
	}

	var commit []int
	for i, u := range units {
		if u.HasCommitment() {
			commit = append(commit, i)
		}
	}

	best := math.Inf(1)
	var bestCols []column
	var bestX []float64
	var solverErr error

	for mask := 0; mask < 1<<len(commit); mask++ {
		on := make(map[int]bool, len(commit))
		for bit, idx := range commit {
			on[idx] = mask&(1<<bit) != 0
		}
		cols, ok := o.buildColumns(units, envs, pt, prev, on)
		if !ok {
			continue
		}
		obj, x, err := o.solveCombination(cols, pt)
		switch {
		case err == nil:
			if obj < best {
				best, bestCols, bestX = obj, cols, x
			}
		case errors.Is(err, lp.ErrInfeasible):
			// Genuine infeasibility for this combination.
		default:
			o.log.Debugw("lp solver failure", map[string]any{
				"timestamp": pt.Timestamp, "combination": mask, "error": err.Error(),
			})
			solverErr = err
		}
	}

	if bestCols == nil {
		dec := offDecision(units)
		dec.Infeasible = true
		if solverErr != nil {
			dec.SolverFailed = true
			return dec, &SolverError{Err: solverErr}
		}
		return dec, ErrInfeasible
	}
	return o.assemble(units, bestCols, bestX, pt), nil
}

// buildColumns derives the linearized contribution of every unit for
// one on/off combination. It returns false when ramp limits make the
// combination unreachable from the previous outputs.
func (o *Optimizer) buildColumns(units []model.Unit, envs []model.Envelope, pt model.DemandPricePoint, prev map[string]float64, on map[int]bool) ([]column, bool) {
	turbineOn := false
	for i, u := range units {
		if u.Kind != model.GasTurbine {
			continue
		}
		if !u.HasCommitment() || on[i] {
			turbineOn = true
		}
	}

	cols := make([]column, 0, len(units))
	for i := range units {
		u := &units[i]
		env := envs[i]

		lo, hi := primaryBounds(u, env)
		active := true
		if u.HasCommitment() && !on[i] {
			active = false
		}
		// Heat recovery has nothing to recover with the turbine down.
		if u.Kind == model.HRSG && !turbineOn {
			active = false
		}
		if !active {
			lo, hi = 0, 0
		}
		if p, ok := prev[u.Name]; ok && u.RampMW > 0 {
			lo = math.Max(lo, p-u.RampMW)
			hi = math.Min(hi, p+u.RampMW)
		}
		if lo > hi+fixedSpan {
			return nil, false
		}
		if hi < 0 {
			hi = 0
		}
		if lo < 0 {
			lo = 0
		}

		col, err := o.linearize(u, env, pt, lo, hi, active)
		if err != nil {
			// Curve domain violations are caught by Validate; treat a
			// residual failure as an unusable combination.
			o.log.Errorf("linearize %s: %v", u.Name, err)
			return nil, false
		}
		col.on = active
		cols = append(cols, col)
	}
	return cols, true
}

// linearize computes the secant linearization of fuel and heat over the
// primary output range [lo, hi].
func (o *Optimizer) linearize(u *model.Unit, env model.Envelope, pt model.DemandPricePoint, lo, hi float64, active bool) (column, error) {
	col := column{unit: u, lo: lo, span: hi - lo}
	if !active {
		return col, nil
	}

	switch u.Kind {
	case model.GasTurbine:
		fuelLo, heatLo, err := turbinePoint(u, env, lo)
		if err != nil {
			return column{}, err
		}
		fuelHi, heatHi, err := turbinePoint(u, env, hi)
		if err != nil {
			return column{}, err
		}
		col.basePower, col.powerCoef = lo, 1
		col.baseFuel, col.baseHeat = fuelLo, heatLo
		if col.span > fixedSpan {
			col.fuelCoef = (fuelHi - fuelLo) / col.span
			col.heatCoef = (heatHi - heatLo) / col.span
		}
		col.fuelPrice = pt.EffectiveGasPrice(u.CO2Factor)

	case model.GasBoiler, model.HRSG:
		fuelLo, err := boilerFuel(u, env, lo)
		if err != nil {
			return column{}, err
		}
		fuelHi, err := boilerFuel(u, env, hi)
		if err != nil {
			return column{}, err
		}
		col.baseHeat, col.heatCoef = lo, 1
		col.baseFuel = fuelLo
		if col.span > fixedSpan {
			col.fuelCoef = (fuelHi - fuelLo) / col.span
		}
		col.fuelPrice = pt.EffectiveGasPrice(u.CO2Factor)

	case model.ElectricBoiler:
		elecLo, err := boilerFuel(u, env, lo)
		if err != nil {
			return column{}, err
		}
		elecHi, err := boilerFuel(u, env, hi)
		if err != nil {
			return column{}, err
		}
		col.baseHeat, col.heatCoef = lo, 1
		col.baseLoad = elecLo
		if col.span > fixedSpan {
			col.loadCoef = (elecHi - elecLo) / col.span
		}
	}
	return col, nil
}

// solveCombination assembles and solves the LP for one combination and
// returns the total objective including constant terms.
func (o *Optimizer) solveCombination(cols []column, pt model.DemandPricePoint) (float64, []float64, error) {
	var vars []int
	for i, col := range cols {
		if col.span > fixedSpan {
			vars = append(vars, i)
		}
	}
	nv := len(vars) + 2 // unit variables, offtake, injection
	oIdx, jIdx := nv-2, nv-1

	constant := 0.0
	c := make([]float64, nv)
	for vi, ci := range vars {
		col := cols[ci]
		c[vi] = col.fuelCoef * col.fuelPrice
		if o.cfg.CHPPreference && col.unit.Kind == model.GasTurbine {
			c[vi] -= chpEpsilon * col.powerCoef
		}
	}
	for _, col := range cols {
		constant += col.baseFuel * col.fuelPrice
		if o.cfg.CHPPreference && col.unit.Kind == model.GasTurbine {
			constant -= chpEpsilon * col.basePower
		}
	}
	c[oIdx] = pt.PowerPrice
	c[jIdx] = -pt.InjectionPrice

	// Power balance: generation - consumption + offtake - injection = demand.
	a := mat.NewDense(1, nv, nil)
	basePower, baseLoad, baseHeat := 0.0, 0.0, 0.0
	for _, col := range cols {
		basePower += col.basePower
		baseLoad += col.baseLoad
		baseHeat += col.baseHeat
	}
	for vi, ci := range vars {
		a.Set(0, vi, cols[ci].powerCoef-cols[ci].loadCoef)
	}
	a.Set(0, oIdx, 1)
	a.Set(0, jIdx, -1)
	b := []float64{pt.PowerDemandMW - basePower + baseLoad}

	// Inequalities: heat coverage, variable bounds, grid limits.
	rows := 1 + 2*nv
	g := mat.NewDense(rows, nv, nil)
	h := make([]float64, rows)
	for vi, ci := range vars {
		g.Set(0, vi, -cols[ci].heatCoef)
	}
	h[0] = baseHeat - pt.HeatDemandMW
	for v := 0; v < nv; v++ {
		ub := o.cfg.GridLimitMW
		if v < len(vars) {
			ub = cols[vars[v]].span
		}
		g.Set(1+2*v, v, 1)
		h[1+2*v] = ub
		g.Set(2+2*v, v, -1)
		h[2+2*v] = 0
	}

	opt, x, err := lpSolve(c, g, h, a, b, o.cfg.Tolerance)
	if err != nil {
		return 0, nil, err
	}
	return constant + opt, x, nil
}

// assemble turns the winning LP solution back into a decision with the
// true operating cost, excluding the tie-break credit.
func (o *Optimizer) assemble(units []model.Unit, cols []column, x []float64, pt model.DemandPricePoint) model.Decision {
	dec := model.Decision{Outputs: make([]model.UnitOutput, len(units))}
	vi := 0
	cost := 0.0
	for i, col := range cols {
		dx := 0.0
		if col.span > fixedSpan {
			dx = clamp(x[vi], 0, col.span)
			vi++
		}
		out := model.UnitOutput{Name: col.unit.Name, Kind: col.unit.Kind, On: col.on}
		out.PowerMW = col.basePower + col.powerCoef*dx
		out.HeatMW = col.baseHeat + col.heatCoef*dx
		switch {
		case col.unit.FuelBased():
			out.FuelMW = col.baseFuel + col.fuelCoef*dx
			cost += out.FuelMW * col.fuelPrice
		default:
			out.FuelMW = col.baseLoad + col.loadCoef*dx
		}
		if out.PowerMW < fixedSpan && out.HeatMW < fixedSpan && !col.unit.HasCommitment() {
			out.On = out.FuelMW > fixedSpan
		}
		dec.Outputs[i] = out
	}
	dec.OfftakeMW = clamp(x[len(x)-2], 0, o.cfg.GridLimitMW)
	dec.InjectionMW = clamp(x[len(x)-1], 0, o.cfg.GridLimitMW)
	cost += dec.OfftakeMW*pt.PowerPrice - dec.InjectionMW*pt.InjectionPrice
	dec.CostEUR = cost
	return dec
}

func turbinePoint(u *model.Unit, env model.Envelope, p float64) (fuel, heat float64, err error) {
	if p <= 0 {
		return 0, 0, nil
	}
	frac := p / env.MaxPowerMW
	elec, err := u.ElecEff.At(frac)
	if err != nil {
		return 0, 0, err
	}
	th, err := u.HeatEff.At(frac)
	if err != nil {
		return 0, 0, err
	}
	fuel = p / elec
	return fuel, fuel * th, nil
}

func boilerFuel(u *model.Unit, env model.Envelope, heat float64) (float64, error) {
	if heat <= 0 {
		return 0, nil
	}
	eff, err := u.HeatEff.At(heat / env.MaxHeatMW)
	if err != nil {
		return 0, err
	}
	return heat / eff, nil
}

func primaryBounds(u *model.Unit, env model.Envelope) (float64, float64) {
	if u.Kind == model.GasTurbine {
		return env.MinPowerMW, env.MaxPowerMW
	}
	return env.MinHeatMW, env.MaxHeatMW
}

func offDecision(units []model.Unit) model.Decision {
	dec := model.Decision{Outputs: make([]model.UnitOutput, len(units))}
	for i, u := range units {
		dec.Outputs[i] = model.UnitOutput{Name: u.Name, Kind: u.Kind}
	}
	return dec
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

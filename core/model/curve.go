package model

import "fmt"

// CurvePoint is one documented operating point of an efficiency curve.
// Load is the load fraction relative to maximum output, Eff the conversion
// efficiency at that load.
type CurvePoint struct {
	Load float64 `json:"load"`
	Eff  float64 `json:"eff"`
}

// Curve is an ordered sequence of operating points. Efficiency between
// points is linearly interpolated. Querying outside the documented load
// range is a configuration error, never an extrapolation.
type Curve []CurvePoint

// Flat returns a curve with a single constant efficiency over [0,1].
func Flat(eff float64) Curve {
	return Curve{{Load: 0, Eff: eff}, {Load: 1, Eff: eff}}
}

// Validate checks ordering and efficiency bounds.
func (c Curve) Validate() error {
	if len(c) < 2 {
		return fmt.Errorf("curve needs at least two points, got %d", len(c))
	}
	for i, p := range c {
		if p.Load < 0 || p.Load > 1 {
			return fmt.Errorf("curve point %d: load fraction %g outside [0,1]", i, p.Load)
		}
		if p.Eff <= 0 || p.Eff > 1 {
			return fmt.Errorf("curve point %d: efficiency %g outside (0,1]", i, p.Eff)
		}
		if i > 0 && p.Load <= c[i-1].Load {
			return fmt.Errorf("curve point %d: load fractions must be strictly increasing", i)
		}
	}
	return nil
}

// At returns the interpolated efficiency at the given load fraction.
func (c Curve) At(load float64) (float64, error) {
	if len(c) == 0 {
		return 0, fmt.Errorf("empty efficiency curve")
	}
	if load < c[0].Load || load > c[len(c)-1].Load {
		return 0, fmt.Errorf("load fraction %g outside curve domain [%g, %g]",
			load, c[0].Load, c[len(c)-1].Load)
	}
	for i := 1; i < len(c); i++ {
		if load <= c[i].Load {
			lo, hi := c[i-1], c[i]
			t := (load - lo.Load) / (hi.Load - lo.Load)
			return lo.Eff + t*(hi.Eff-lo.Eff), nil
		}
	}
	return c[len(c)-1].Eff, nil
}

// Covers reports whether the curve domain includes [lo, hi].
func (c Curve) Covers(lo, hi float64) bool {
	if len(c) == 0 {
		return false
	}
	return c[0].Load <= lo && c[len(c)-1].Load >= hi
}

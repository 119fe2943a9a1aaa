package dispatch

// Config holds optimizer tuning parameters.
type Config struct {
	// GridLimitMW bounds grid offtake and injection per step.
	GridLimitMW float64 `json:"grid_limit_mw"`
	// CHPPreference enables the tie-break credit on gas turbine output
	// so degenerate optima favour co-generation.
	CHPPreference bool `json:"chp_preference"`
	// Tolerance is passed to the simplex solver.
	Tolerance float64 `json:"tolerance"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GridLimitMW == 0 {
		c.GridLimitMW = 10000
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-7
	}
}

// DefaultConfig returns the optimizer defaults with CHP preference on.
func DefaultConfig() Config {
	cfg := Config{CHPPreference: true}
	cfg.SetDefaults()
	return cfg
}

package dispatch

import (
	"errors"
	"fmt"
)

// ErrInfeasible indicates that no on/off combination admits a dispatch
// covering demand. The optimizer never silently under-serves; callers
// record the flag and decide whether to continue.
var ErrInfeasible = errors.New("no feasible dispatch")

// SolverError reports that the LP solver failed for reasons other than
// proven infeasibility (singular basis, unboundedness, no convergence).
// It is treated as an infeasible step but logged distinctly so operators
// can tell a solver limitation from a genuine capacity shortfall.
type SolverError struct {
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver failed: %v", e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

package scenario

import (
	"time"

	"github.com/kilianp07/chpsim/core/model"
)

// State is the lifecycle of a scenario run.
type State int32

const (
	Idle State = iota
	Running
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// StepResult is one row of the result table. Per-step errors are
// embedded here rather than raised so a partial failure still leaves a
// complete, analyzable sequence.
type StepResult struct {
	Timestamp time.Time      `json:"timestamp"`
	Decision  model.Decision `json:"decision"`
	Err       string         `json:"error,omitempty"`
}

// Result is the artifact handed to the analysis layer. It is append-only
// while the run is in progress and immutable once the run completes.
type Result struct {
	RunID           string       `json:"run_id"`
	Scenario        string       `json:"scenario"`
	State           State        `json:"state"`
	Steps           []StepResult `json:"steps"`
	TotalCostEUR    float64      `json:"total_cost_eur"`
	InfeasibleSteps int          `json:"infeasible_steps"`
	Started         time.Time    `json:"started"`
	Finished        time.Time    `json:"finished"`
}

// UnitNames returns the unit column order of the result table.
func (r *Result) UnitNames() []string {
	if len(r.Steps) == 0 {
		return nil
	}
	names := make([]string, len(r.Steps[0].Decision.Outputs))
	for i, o := range r.Steps[0].Decision.Outputs {
		names[i] = o.Name
	}
	return names
}

package metrics

import (
	"time"

	"github.com/kilianp07/chpsim/core/model"
)

// StepRecord captures one optimizer step for observability purposes.
type StepRecord struct {
	Scenario     string
	RunID        string
	Time         time.Time
	Decision     model.Decision
	HeatDemandMW float64
	PowerDemand  float64
}

// Status classifies the step for labeling.
func (r StepRecord) Status() string {
	switch {
	case r.Decision.SolverFailed:
		return "solver_error"
	case r.Decision.Infeasible:
		return "infeasible"
	default:
		return "ok"
	}
}

// RunRecord summarizes a completed scenario run.
type RunRecord struct {
	Scenario        string
	RunID           string
	Start, End      time.Time
	Steps           int
	InfeasibleSteps int
	TotalCostEUR    float64
	State           string
}

// Sink records dispatch steps and run summaries.
type Sink interface {
	RecordStep(rec StepRecord) error
	RecordRun(rec RunRecord) error
	Close() error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordStep(StepRecord) error { return nil }
func (NopSink) RecordRun(RunRecord) error   { return nil }
func (NopSink) Close() error                { return nil }

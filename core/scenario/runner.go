package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chpsim/core/dispatch"
	"github.com/kilianp07/chpsim/core/logger"
	"github.com/kilianp07/chpsim/core/metrics"
	"github.com/kilianp07/chpsim/core/model"
	"github.com/kilianp07/chpsim/internal/eventbus"
)

// ErrStoppedInfeasible is returned when the runner halts early because
// stop_on_infeasible is set. The partial result stays valid.
var ErrStoppedInfeasible = errors.New("run stopped on infeasible step")

// Config holds runner policy settings.
type Config struct {
	// StopOnInfeasible halts the run at the first infeasible step
	// instead of the default continue-and-flag policy.
	StopOnInfeasible bool `json:"stop_on_infeasible"`
}

// StepEvent is published after every optimizer step.
type StepEvent struct {
	Scenario   string
	RunID      string
	Index      int
	Time       time.Time
	CostEUR    float64
	Infeasible bool
}

// Runner drives the optimizer over a feed for one scenario run. It
// exclusively owns the evolving ramp state; the optimizer stays
// stateless between calls.
type Runner struct {
	units []model.Unit
	opt   *dispatch.Optimizer
	cfg   Config
	log   logger.Logger
	sink  metrics.Sink
	bus   *eventbus.Bus[StepEvent]

	state atomic.Int32
}

// NewRunner builds a single-use runner. Logger, sink and bus may be nil.
func NewRunner(units []model.Unit, opt *dispatch.Optimizer, cfg Config, log logger.Logger, sink metrics.Sink, bus *eventbus.Bus[StepEvent]) *Runner {
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Runner{units: units, opt: opt, cfg: cfg, log: log, sink: sink, bus: bus}
}

// State returns the current lifecycle state.
func (r *Runner) State() State { return State(r.state.Load()) }

// Run iterates the feed, one optimizer call per timestep, threading
// ramp state forward. Per-step infeasibility is recorded in the result
// rows; only unrecoverable input errors abort the run. Cancellation
// between steps leaves completed rows intact.
func (r *Runner) Run(ctx context.Context, sc Scenario, feed []model.DemandPricePoint) (*Result, error) {
	if !r.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, fmt.Errorf("runner already used (state %s)", r.State())
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Scenario: sc.Name,
		Started:  time.Now(),
	}
	abort := func(err error) (*Result, error) {
		r.state.Store(int32(Aborted))
		res.State = Aborted
		res.Finished = time.Now()
		return res, err
	}

	if err := sc.Validate(); err != nil {
		return abort(&model.ConfigError{Err: err})
	}
	if err := model.ValidateUnits(r.units); err != nil {
		return abort(&model.ConfigError{Err: err})
	}

	prev := make(map[string]float64, len(r.units))
	var lastTS time.Time
	for i, raw := range feed {
		if err := ctx.Err(); err != nil {
			r.log.Warnf("run %s cancelled at step %d", res.RunID, i)
			return abort(err)
		}
		if err := raw.Validate(); err != nil {
			return abort(&model.ConfigError{Err: err})
		}
		if !lastTS.IsZero() && !raw.Timestamp.After(lastTS) {
			return abort(model.Configf("feed row %d: timestamp %s not after %s",
				i, raw.Timestamp.Format(time.RFC3339), lastTS.Format(time.RFC3339)))
		}
		lastTS = raw.Timestamp

		pt := sc.Transform(raw)
		if err := pt.Validate(); err != nil {
			return abort(&model.ConfigError{Err: err})
		}

		dec, err := r.opt.Solve(pt, r.units, prev)
		step := StepResult{Timestamp: pt.Timestamp, Decision: dec}
		if err != nil {
			var solErr *dispatch.SolverError
			switch {
			case errors.Is(err, dispatch.ErrInfeasible):
				r.log.Warnf("step %s: %v", pt.Timestamp.Format(time.RFC3339), err)
			case errors.As(err, &solErr):
				r.log.Errorf("step %s: %v", pt.Timestamp.Format(time.RFC3339), err)
			default:
				return abort(err)
			}
			step.Err = err.Error()
			res.InfeasibleSteps++
		} else {
			for _, out := range dec.Outputs {
				prev[out.Name] = primaryOutput(out)
			}
			res.TotalCostEUR += dec.CostEUR
		}
		res.Steps = append(res.Steps, step)
		r.record(res, sc, pt, i, step)

		if step.Err != "" && r.cfg.StopOnInfeasible {
			r.state.Store(int32(Completed))
			res.State = Completed
			res.Finished = time.Now()
			return res, ErrStoppedInfeasible
		}
	}

	r.state.Store(int32(Completed))
	res.State = Completed
	res.Finished = time.Now()
	if err := r.sink.RecordRun(metrics.RunRecord{
		Scenario: sc.Name, RunID: res.RunID,
		Start: res.Started, End: res.Finished,
		Steps: len(res.Steps), InfeasibleSteps: res.InfeasibleSteps,
		TotalCostEUR: res.TotalCostEUR, State: res.State.String(),
	}); err != nil {
		r.log.Errorf("record run summary: %v", err)
	}
	return res, nil
}

func (r *Runner) record(res *Result, sc Scenario, pt model.DemandPricePoint, idx int, step StepResult) {
	if err := r.sink.RecordStep(metrics.StepRecord{
		Scenario: sc.Name, RunID: res.RunID, Time: pt.Timestamp,
		Decision: step.Decision, HeatDemandMW: pt.HeatDemandMW, PowerDemand: pt.PowerDemandMW,
	}); err != nil {
		r.log.Errorf("record step: %v", err)
	}
	if r.bus != nil {
		r.bus.Publish(StepEvent{
			Scenario: sc.Name, RunID: res.RunID, Index: idx,
			Time: pt.Timestamp, CostEUR: step.Decision.CostEUR,
			Infeasible: step.Decision.Infeasible,
		})
	}
}

// primaryOutput is the ramp-constrained quantity of a unit: electrical
// output for the gas turbine, thermal output otherwise.
func primaryOutput(out model.UnitOutput) float64 {
	if out.Kind == model.GasTurbine {
		return out.PowerMW
	}
	return out.HeatMW
}

// Set bundles everything shared by a batch of scenario runs. The unit
// definitions and feed are read-only for the whole batch, so scenarios
// run fully in parallel without locking.
type Set struct {
	Units     []model.Unit
	Optimizer dispatch.Config
	Runner    Config
	Log       logger.Logger
	Sink      metrics.Sink
	Bus       *eventbus.Bus[StepEvent]
}

// RunAll executes every scenario concurrently, one runner each, and
// returns results keyed by scenario name. Per-run errors are joined;
// results of aborted runs are still returned with their partial steps.
func (s *Set) RunAll(ctx context.Context, scenarios []Scenario, feed []model.DemandPricePoint) (map[string]*Result, error) {
	results := make(map[string]*Result, len(scenarios))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make([]error, len(scenarios))

	for i, sc := range scenarios {
		wg.Add(1)
		go func(i int, sc Scenario) {
			defer wg.Done()
			opt := dispatch.New(s.Optimizer, s.Log)
			runner := NewRunner(s.Units, opt, s.Runner, s.Log, s.Sink, s.Bus)
			res, err := runner.Run(ctx, sc, feed)
			if err != nil && !errors.Is(err, ErrStoppedInfeasible) {
				errs[i] = fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			mu.Lock()
			results[sc.Name] = res
			mu.Unlock()
		}(i, sc)
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

package scenario

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kilianp07/chpsim/core/dispatch"
	"github.com/kilianp07/chpsim/core/model"
	"github.com/kilianp07/chpsim/internal/eventbus"
)

func testUnits() []model.Unit {
	return []model.Unit{
		{
			Name: "gt1", Kind: model.GasTurbine,
			MinPowerMW: 3, MaxPowerMW: 6.55,
			ElecEff: model.Flat(0.40), HeatEff: model.Flat(0.45),
			Derate:    &model.Derating{BaseMW: 6.55, SlopeMW: 0.045},
			CO2Factor: 0.1824,
		},
		{
			Name: "gb1", Kind: model.GasBoiler,
			MaxHeatMW: 20, HeatEff: model.Flat(0.9),
			CO2Factor: 0.1824,
		},
	}
}

func testFeed(n int) []model.DemandPricePoint {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]model.DemandPricePoint, n)
	for i := range pts {
		pts[i] = model.DemandPricePoint{
			Timestamp:      start.Add(time.Duration(i) * time.Hour),
			HeatDemandMW:   10,
			PowerDemandMW:  4,
			GasPrice:       30,
			PowerPrice:     80,
			InjectionPrice: 60,
			AmbientTempC:   5,
		}
	}
	return pts
}

func newTestRunner(cfg Config, bus *eventbus.Bus[StepEvent]) *Runner {
	opt := dispatch.New(dispatch.DefaultConfig(), nil)
	return NewRunner(testUnits(), opt, cfg, nil, nil, bus)
}

func TestRunCompletes(t *testing.T) {
	r := newTestRunner(Config{}, nil)
	if r.State() != Idle {
		t.Fatalf("expected idle state got %s", r.State())
	}
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, testFeed(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.State() != Completed || res.State != Completed {
		t.Fatalf("expected completed state got %s", res.State)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("expected 3 steps got %d", len(res.Steps))
	}
	if res.InfeasibleSteps != 0 {
		t.Fatalf("expected no infeasible steps got %d", res.InfeasibleSteps)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}
	var sum float64
	for i, step := range res.Steps {
		if i > 0 && !step.Timestamp.After(res.Steps[i-1].Timestamp) {
			t.Fatal("result timestamps must increase")
		}
		sum += step.Decision.CostEUR
	}
	if math.Abs(sum-res.TotalCostEUR) > 1e-9 {
		t.Fatalf("total cost %v != sum of steps %v", res.TotalCostEUR, sum)
	}
}

func TestRunContinueAndFlag(t *testing.T) {
	feed := testFeed(3)
	feed[1].HeatDemandMW = 500 // far beyond capacity

	r := newTestRunner(Config{}, nil)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, feed)
	if err != nil {
		t.Fatalf("infeasible step must not abort the run: %v", err)
	}
	if res.State != Completed {
		t.Fatalf("expected completed got %s", res.State)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("expected all 3 steps recorded got %d", len(res.Steps))
	}
	if res.InfeasibleSteps != 1 {
		t.Fatalf("expected 1 infeasible step got %d", res.InfeasibleSteps)
	}
	if !res.Steps[1].Decision.Infeasible || res.Steps[1].Err == "" {
		t.Fatalf("step 1 must carry the infeasibility: %+v", res.Steps[1])
	}
	if res.Steps[0].Decision.Infeasible || res.Steps[2].Decision.Infeasible {
		t.Fatal("neighbouring steps must stay feasible")
	}
}

func TestRunStopOnInfeasible(t *testing.T) {
	feed := testFeed(3)
	feed[1].HeatDemandMW = 500

	r := newTestRunner(Config{StopOnInfeasible: true}, nil)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, feed)
	if !errors.Is(err, ErrStoppedInfeasible) {
		t.Fatalf("expected ErrStoppedInfeasible got %v", err)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected run to stop after the infeasible step, got %d steps", len(res.Steps))
	}
}

func TestRunAbortsOnNonMonotonicFeed(t *testing.T) {
	feed := testFeed(3)
	feed[2].Timestamp = feed[1].Timestamp

	r := newTestRunner(Config{}, nil)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, feed)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError got %v", err)
	}
	if res.State != Aborted {
		t.Fatalf("expected aborted got %s", res.State)
	}
	// Rows before the malformed one stay intact.
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 completed steps got %d", len(res.Steps))
	}
}

func TestRunAbortsOnInvalidUnits(t *testing.T) {
	units := testUnits()
	units[0].MinPowerMW = 10 // above max
	opt := dispatch.New(dispatch.DefaultConfig(), nil)
	r := NewRunner(units, opt, Config{}, nil, nil, nil)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, testFeed(2))
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError got %v", err)
	}
	if res.State != Aborted || len(res.Steps) != 0 {
		t.Fatalf("expected aborted before any step, got %+v", res)
	}
}

func TestRunCancelledKeepsCompletedSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestRunner(Config{}, nil)
	res, err := r.Run(ctx, Scenario{Name: "base"}, testFeed(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error got %v", err)
	}
	if res.State != Aborted {
		t.Fatalf("expected aborted got %s", res.State)
	}
	if len(res.Steps) != 0 {
		t.Fatalf("no steps should complete after cancellation, got %d", len(res.Steps))
	}
}

func TestRunnerSingleUse(t *testing.T) {
	r := newTestRunner(Config{}, nil)
	if _, err := r.Run(context.Background(), Scenario{Name: "base"}, testFeed(1)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := r.Run(context.Background(), Scenario{Name: "base"}, testFeed(1)); err == nil {
		t.Fatal("expected error on second use")
	}
}

func TestRunThreadsRampState(t *testing.T) {
	units := testUnits()
	units[0].RampMW = 0.5

	feed := testFeed(4)
	// Force the turbine through changing operating points.
	feed[0].HeatDemandMW, feed[1].HeatDemandMW = 4, 8
	feed[2].HeatDemandMW, feed[3].HeatDemandMW = 2, 6

	opt := dispatch.New(dispatch.DefaultConfig(), nil)
	r := NewRunner(units, opt, Config{}, nil, nil, nil)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, feed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var prev *float64
	for i, step := range res.Steps {
		out, _ := step.Decision.Output("gt1")
		if prev != nil && math.Abs(out.PowerMW-*prev) > 0.5+1e-5 {
			t.Fatalf("step %d: ramp delta %v exceeds 0.5", i, math.Abs(out.PowerMW-*prev))
		}
		p := out.PowerMW
		prev = &p
	}
}

func TestScenarioTransformChangesCost(t *testing.T) {
	feed := testFeed(2)

	base := Scenario{Name: "base"}
	expensive := Scenario{
		Name: "expensive-gas",
		Gas:  Contract{A: 1, B: 40},
	}

	r1 := newTestRunner(Config{}, nil)
	res1, err := r1.Run(context.Background(), base, feed)
	if err != nil {
		t.Fatalf("base run: %v", err)
	}
	r2 := newTestRunner(Config{}, nil)
	res2, err := r2.Run(context.Background(), expensive, feed)
	if err != nil {
		t.Fatalf("expensive run: %v", err)
	}
	if res2.TotalCostEUR <= res1.TotalCostEUR {
		t.Fatalf("gas surcharge must raise total cost: %v vs %v", res2.TotalCostEUR, res1.TotalCostEUR)
	}
}

func TestRunPublishesStepEvents(t *testing.T) {
	bus := eventbus.New[StepEvent]()
	defer bus.Close()
	events := bus.Subscribe()

	r := newTestRunner(Config{}, bus)
	res, err := r.Run(context.Background(), Scenario{Name: "base"}, testFeed(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			if ev.Scenario != "base" || ev.RunID != res.RunID {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatalf("expected buffered event %d", i)
		}
	}
}

func TestRunAllParallelScenarios(t *testing.T) {
	set := &Set{
		Units:     testUnits(),
		Optimizer: dispatch.DefaultConfig(),
	}
	scenarios := []Scenario{
		{Name: "base"},
		{Name: "taxed", OfftakeTax: 15},
	}
	results, err := set.RunAll(context.Background(), scenarios, testFeed(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results got %d", len(results))
	}
	for name, res := range results {
		if res.State != Completed {
			t.Fatalf("%s: expected completed got %s", name, res.State)
		}
		if len(res.Steps) != 3 {
			t.Fatalf("%s: expected 3 steps got %d", name, len(res.Steps))
		}
	}
}

func TestContractApply(t *testing.T) {
	if got := (Contract{}).Apply(42); got != 42 {
		t.Fatalf("zero contract must be identity, got %v", got)
	}
	if got := (Contract{A: 2, B: 5}).Apply(10); got != 25 {
		t.Fatalf("expected 25 got %v", got)
	}
}

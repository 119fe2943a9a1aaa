package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/chpsim/core/metrics"
)

// PromSink records dispatch steps in Prometheus metrics.
type PromSink struct {
	steps    *prometheus.CounterVec
	stepCost *prometheus.HistogramVec
	runCost  *prometheus.GaugeVec
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chpsim_dispatch_steps_total",
		Help: "Total number of dispatch steps by outcome",
	}, []string{"scenario", "status"})
	stepCost := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chpsim_step_cost_eur",
		Help:    "Operating cost per dispatch step",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"scenario"})
	runCost := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chpsim_run_total_cost_eur",
		Help: "Total operating cost of the last completed run",
	}, []string{"scenario"})

	if err := reg.Register(steps); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			steps = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(stepCost); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			stepCost = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runCost); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runCost = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{steps: steps, stepCost: stepCost, runCost: runCost}, nil
}

// RecordStep increments the step counter and observes the step cost.
func (s *PromSink) RecordStep(rec coremetrics.StepRecord) error {
	s.steps.WithLabelValues(rec.Scenario, rec.Status()).Inc()
	if !rec.Decision.Infeasible {
		s.stepCost.WithLabelValues(rec.Scenario).Observe(rec.Decision.CostEUR)
	}
	return nil
}

// RecordRun sets the run cost gauge.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	s.runCost.WithLabelValues(rec.Scenario).Set(rec.TotalCostEUR)
	return nil
}

// Close implements the Sink interface.
func (s *PromSink) Close() error { return nil }

// StartPromServer exposes /metrics on the given port. It blocks.
func StartPromServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

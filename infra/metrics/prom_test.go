package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/chpsim/core/metrics"
	"github.com/kilianp07/chpsim/core/model"
)

func TestPromSinkRecordStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordStep(coremetrics.StepRecord{
		Scenario: "base",
		Decision: model.Decision{CostEUR: 120},
	}))
	require.NoError(t, sink.RecordStep(coremetrics.StepRecord{
		Scenario: "base",
		Decision: model.Decision{Infeasible: true},
	}))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.steps.WithLabelValues("base", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.steps.WithLabelValues("base", "infeasible")))
}

func TestPromSinkStatusLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordStep(coremetrics.StepRecord{
		Scenario: "base",
		Decision: model.Decision{Infeasible: true, SolverFailed: true},
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.steps.WithLabelValues("base", "solver_error")))
}

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordRun(coremetrics.RunRecord{Scenario: "base", TotalCostEUR: 4321.5}))
	require.Equal(t, 4321.5, testutil.ToFloat64(sink.runCost.WithLabelValues("base")))
	require.NoError(t, sink.Close())
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	// Re-registering on the same registry reuses the existing collectors.
	_, err = NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
}

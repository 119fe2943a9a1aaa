package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelogger "github.com/kilianp07/chpsim/core/logger"
	coremetrics "github.com/kilianp07/chpsim/core/metrics"
	"github.com/kilianp07/chpsim/infra/logger"
)

// InfluxSink writes dispatch steps to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing database never
// blocks a simulation.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes the step as one point with per-unit output fields.
func (s *InfluxSink) RecordStep(rec coremetrics.StepRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_step").
		AddTag("scenario", rec.Scenario).
		AddTag("run_id", rec.RunID).
		AddTag("status", rec.Status()).
		AddField("total_cost_eur", round3(rec.Decision.CostEUR)).
		AddField("heat_demand_mw", round3(rec.HeatDemandMW)).
		AddField("power_demand_mw", round3(rec.PowerDemand)).
		AddField("grid_offtake_mw", round3(rec.Decision.OfftakeMW)).
		AddField("grid_injection_mw", round3(rec.Decision.InjectionMW)).
		SetTime(rec.Time)
	for _, out := range rec.Decision.Outputs {
		p.AddField(out.Name+"_power_mw", round3(out.PowerMW))
		p.AddField(out.Name+"_heat_mw", round3(out.HeatMW))
		p.AddField(out.Name+"_on", strconv.FormatBool(out.On))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the run summary point.
func (s *InfluxSink) RecordRun(rec coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scenario_run").
		AddTag("scenario", rec.Scenario).
		AddTag("run_id", rec.RunID).
		AddTag("state", rec.State).
		AddField("steps", rec.Steps).
		AddField("infeasible_steps", rec.InfeasibleSteps).
		AddField("total_cost_eur", round3(rec.TotalCostEUR)).
		AddField("duration_seconds", rec.End.Sub(rec.Start).Seconds()).
		SetTime(rec.End)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

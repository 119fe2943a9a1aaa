package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpsim/config"
	"github.com/kilianp07/chpsim/core/scenario"
	"github.com/kilianp07/chpsim/infra/feed"
	"github.com/kilianp07/chpsim/infra/logger"
	"github.com/kilianp07/chpsim/infra/metrics"
	"github.com/kilianp07/chpsim/internal/eventbus"
	"github.com/kilianp07/chpsim/pkg/export"
)

var (
	feedPath string
	outDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all configured scenarios over a demand/price feed",
	RunE:  runScenarios,
}

func init() {
	runCmd.Flags().StringVarP(&feedPath, "feed", "f", "feed.csv", "demand/price feed CSV")
	runCmd.Flags().StringVarP(&outDir, "out", "o", "results", "output directory for result tables")
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("run")

	units, err := cfg.BuildUnits()
	if err != nil {
		return err
	}
	rows, err := feed.ReadFile(feedPath)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}

	sink, err := metrics.NewFromConfig(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logg.Errorf("metrics close: %v", err)
		}
	}()
	if cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(cfg.Metrics.PrometheusPort); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	bus := eventbus.New[scenario.StepEvent]()
	defer bus.Close()
	events := bus.Subscribe()
	go func() {
		for ev := range events {
			if ev.Infeasible {
				logg.Warnf("%s step %d (%s): infeasible", ev.Scenario, ev.Index, ev.Time.Format("2006-01-02 15:04"))
			}
		}
	}()

	set := &scenario.Set{
		Units:     units,
		Optimizer: cfg.Optimizer,
		Runner:    cfg.Runner,
		Log:       logg,
		Sink:      sink,
		Bus:       bus,
	}
	results, runErr := set.RunAll(ctx, cfg.Scenarios, rows)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for name, res := range results {
		if res == nil {
			continue
		}
		path := filepath.Join(outDir, name+".csv")
		if err := writeResult(path, res); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logg.Infof("%s: %s, %d steps, %d infeasible, total cost %.2f EUR -> %s",
			name, res.State, len(res.Steps), res.InfeasibleSteps, res.TotalCostEUR, path)
	}
	return runErr
}

func writeResult(path string, res *scenario.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, res)
}

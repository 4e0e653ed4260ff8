package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pharmsim/pharmsim/sim"
	"github.com/pharmsim/pharmsim/sim/models"
	"github.com/pharmsim/pharmsim/sim/population"
	_ "github.com/pharmsim/pharmsim/sim/solver"
	"github.com/pharmsim/pharmsim/sim/trace"
)

var (
	scenarioPath string        // YAML scenario file
	logLevel     string        // Log verbosity level
	solverMethod string        // Overrides the scenario's solver method
	workers      int           // Concurrent subject runs
	timeout      time.Duration // Wall-clock limit for the whole batch
	showTrace    bool          // Print a per-subject integration summary
	showMetrics  bool          // Print run metrics in Prometheus text format
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pharmsim",
	Short: "Event-driven compartmental simulator for dosing schedules",
}

// runCmd simulates every subject of a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a scenario and print predictions",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting simulation.")
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if solverMethod != "" {
			sc.Solver.Method = solverMethod
		}

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		logrus.Infof("Starting simulation: model=%s, subjects=%d, solver=%s, workers=%d",
			sc.Model, len(sc.Subjects), sc.SolverConfig().WithDefaults().Method, workers)
		startTime := time.Now()

		reg := prometheus.NewRegistry()
		results, err := RunScenario(ctx, sc, workers, population.NewMetrics(reg))
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		out := cmd.OutOrStdout()
		PrintPredictions(out, results)

		if showTrace {
			if err := PrintTraces(out, sc); err != nil {
				logrus.Fatalf("Trace failed: %v", err)
			}
		}
		if showMetrics {
			if err := PrintMetrics(out, reg); err != nil {
				logrus.Fatalf("Writing metrics failed: %v", err)
			}
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// modelsCmd lists the built-in models and their parameters
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List built-in models",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, name := range models.Names() {
			m, _ := models.Lookup(name)
			n, k := m.Dims()
			fmt.Fprintf(out, "%-6s states=%d outputs=%d params=[%s]\n    %s\n",
				name, n, k, strings.Join(m.Params().Names(), " "), models.Describe(name))
		}
	},
}

// RunScenario builds the scenario's model and subjects and simulates them concurrently.
func RunScenario(ctx context.Context, sc *Scenario, workers int, metrics *population.Metrics) ([]population.Result, error) {
	eq, err := models.Lookup(sc.Model)
	if err != nil {
		return nil, err
	}
	p, err := eq.Params().FromMap(sc.Params)
	if err != nil {
		return nil, err
	}
	subjects, err := sc.BuildSubjects()
	if err != nil {
		return nil, err
	}
	runner := &population.Runner{
		Equation: eq,
		Config:   sim.SimConfig{Solver: sc.SolverConfig()},
		Workers:  workers,
		Metrics:  metrics,
	}
	return runner.Run(ctx, population.SubjectsJobs(subjects, p.Values()))
}

// PrintPredictions writes one line per observation; failed subjects are reported inline.
func PrintPredictions(w io.Writer, results []population.Result) {
	fmt.Fprintln(w, "=== Predictions ===")
	fmt.Fprintf(w, "%-12s %10s %4s %14s %14s  %s\n", "subject", "time", "out", "predicted", "observed", "outputs")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%-12s FAILED: %v\n", r.SubjectID, r.Err)
			continue
		}
		if r.Predictions == nil {
			continue
		}
		for _, p := range r.Predictions.Items {
			obs := "-"
			if p.Observed != nil {
				obs = fmt.Sprintf("%.6g", *p.Observed)
			}
			fmt.Fprintf(w, "%-12s %10.4g %4d %14.6g %14s  %v\n", r.SubjectID, p.Time, p.Output, p.Value, obs, p.Outputs)
		}
		if res := r.Predictions.Residuals(); len(res) > 0 {
			fmt.Fprintf(w, "%-12s squared error: %.6g over %d measurements\n", r.SubjectID, r.Predictions.SquaredError(), len(res))
		}
	}
}

// PrintTraces re-runs each subject sequentially with tracing and prints a summary.
func PrintTraces(w io.Writer, sc *Scenario) error {
	eq, err := models.Lookup(sc.Model)
	if err != nil {
		return err
	}
	p, err := eq.Params().FromMap(sc.Params)
	if err != nil {
		return err
	}
	subjects, err := sc.BuildSubjects()
	if err != nil {
		return err
	}
	s, err := sim.NewSimulator(eq, sim.SimConfig{Solver: sc.SolverConfig()})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Integration Trace ===")
	for _, subj := range subjects {
		_, rt, err := s.SimulateWithTrace(subj, p.Values())
		summary := trace.Summarize(rt)
		fmt.Fprintf(w, "%-12s intervals=%d span=%.4g boluses=%d infusions=%d observations=%d dose=%v\n",
			subj.ID, summary.Intervals, summary.IntegratedSpan, summary.Boluses, summary.Infusions,
			summary.Observations, summary.DoseByCompartment)
		if err != nil {
			fmt.Fprintf(w, "%-12s stopped: %v\n", subj.ID, err)
		}
	}
	return nil
}

// PrintMetrics writes the registry in Prometheus text exposition format.
func PrintMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Run Metrics ===")
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to a YAML scenario file")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&solverMethod, "solver", "", "Override the solver method (rkf45, rk4, euler)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent subject simulations (0 = GOMAXPROCS)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the batch after this wall-clock duration (0 = none)")
	runCmd.Flags().BoolVar(&showTrace, "trace", false, "Print an integration summary per subject")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print run metrics in Prometheus text format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
}

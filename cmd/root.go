package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devsim/devsim/sim"
	"github.com/devsim/devsim/sim/config"
	_ "github.com/devsim/devsim/sim/library" // registers the sample model kinds
	"github.com/devsim/devsim/sim/trace"
)

var (
	modelPath     string // Path to the YAML model definition
	untilFlag     string // Simulation horizon in ticks, or "inf"; overrides engine.until
	logLevel      string // Log verbosity level
	workers       int    // Concurrent model invocations per cycle; overrides engine.workers
	maxIterations int    // Zero-time iterations allowed per instant; overrides engine.max_iterations
	traceLevel    string // Trace verbosity: none, outputs, events, full
	traceOut      string // File to write the trace to; empty keeps it in memory only
	traceFormat   string // Trace file format: yaml or json
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "devsim",
	Short: "Discrete-event simulator for hierarchical DEVS models",
}

// runCmd builds the model named by --model and runs it to the horizon
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model definition",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if modelPath == "" {
			logrus.Fatalf("Model definition not provided. Use --model <file.yaml>.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (want none, outputs, events or full)", traceLevel)
		}
		if traceFormat != "yaml" && traceFormat != "json" {
			logrus.Fatalf("Invalid trace format: %s (want yaml or json)", traceFormat)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := runOptions{
			modelPath:     modelPath,
			until:         untilFlag,
			workers:       workers,
			maxIterations: maxIterations,
			traceLevel:    trace.TraceLevel(traceLevel),
			traceOut:      traceOut,
			traceFormat:   traceFormat,
		}
		if err := runModel(ctx, opts); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

type runOptions struct {
	modelPath     string
	until         string
	workers       int
	maxIterations int
	traceLevel    trace.TraceLevel
	traceOut      string
	traceFormat   string
}

// runModel loads, builds and runs one model definition, then prints the summary to stdout.
// The trace always records at least root outputs so the summary has something to count.
func runModel(ctx context.Context, opts runOptions) error {
	spec, err := config.LoadModelSpec(opts.modelPath)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		spec.Engine.Workers = opts.workers
	}
	if opts.maxIterations > 0 {
		spec.Engine.MaxIterations = opts.maxIterations
	}
	until := spec.Engine.UntilTime()
	if opts.until != "" {
		if until, err = sim.ParseTime(opts.until); err != nil {
			return fmt.Errorf("--until: %w", err)
		}
	}

	level := opts.traceLevel
	if level == "" || level == trace.TraceLevelNone {
		level = trace.TraceLevelOutputs
	}
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: level})

	s, err := config.NewSimulator(spec, sim.WithListener(sim.NewTraceListener(st)))
	if err != nil {
		return err
	}
	logrus.Infof("Running %s (run %s) until %s", spec.Root.Name, st.RunID, until)

	start := time.Now()
	runErr := s.Run(ctx, until)
	wall := time.Since(start)

	printSummary(spec.Root.Name, s, trace.Summarize(st), wall)

	if opts.traceOut != "" && opts.traceLevel != "" && opts.traceLevel != trace.TraceLevelNone {
		if err := writeTrace(opts.traceOut, opts.traceFormat, st); err != nil {
			return err
		}
		logrus.Infof("Trace written to %s", opts.traceOut)
	}
	return runErr
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&modelPath, "model", "", "Path to the YAML model definition")
	runCmd.Flags().StringVar(&untilFlag, "until", "", "Simulation horizon in ticks, or \"inf\" (default: engine.until from the model)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent model invocations per cycle (0 keeps the model setting)")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Zero-time iterations allowed per instant (0 keeps the model setting)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Trace verbosity (none, outputs, events, full)")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the trace to this file")
	runCmd.Flags().StringVar(&traceFormat, "trace-format", "yaml", "Trace file format (yaml, json)")

	validateCmd.Flags().StringVar(&modelPath, "model", "", "Path to the YAML model definition")
	validateCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(kindsCmd)
}

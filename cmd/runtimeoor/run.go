package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/ethpandaops/runtimeoor/pkg/fsutil"
	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/overhead"
	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/ethpandaops/runtimeoor/pkg/progress"
	"github.com/ethpandaops/runtimeoor/pkg/report"
	"github.com/ethpandaops/runtimeoor/pkg/results"
	"github.com/ethpandaops/runtimeoor/pkg/runtimes"
	"github.com/ethpandaops/runtimeoor/pkg/store"
	"github.com/ethpandaops/runtimeoor/pkg/sysinfo"
	"github.com/ethpandaops/runtimeoor/pkg/trial"
	"github.com/ethpandaops/runtimeoor/pkg/upload"
	"github.com/ethpandaops/runtimeoor/pkg/workload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runRuntimes     []string
	runBenchmarks   []string
	runTrials       int
	runWarmup       int
	runOutput       string
	runReportFormat string
	runSkipOverhead bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark matrix",
	Long: `Detect the installed runtimes, run every selected workload under every
available runtime, save the result file and print a ranked summary.`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&runRuntimes, "runtimes", nil,
		"Runtimes to benchmark (python3, pypy, uv; comma-separated or repeated flag)")
	cmd.Flags().StringSliceVar(&runBenchmarks, "benchmarks", nil,
		"Workloads to run (comma-separated or repeated flag)")
	cmd.Flags().IntVar(&runTrials, "trials", config.DefaultTrials,
		"Number of timed trials per workload and runtime")
	cmd.Flags().IntVar(&runWarmup, "warmup", config.DefaultWarmup,
		"Number of untimed warmup runs per workload and runtime")
	cmd.Flags().StringVar(&runOutput, "output", "",
		"Result file name or path (default benchmark_results_<timestamp>.<format>)")
	cmd.Flags().StringVar(&runReportFormat, "format", string(report.FormatTable),
		"Summary format ("+strings.Join(report.Formats(), ", ")+")")
	cmd.Flags().BoolVar(&runSkipOverhead, "skip-overhead", false,
		"Skip startup and import overhead measurement")
}

// applyRunFlags lets explicitly set flags override the configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("runtimes") {
		cfg.Benchmark.Runtimes = runRuntimes
	}

	if flags.Changed("benchmarks") {
		cfg.Benchmark.Workloads = runBenchmarks
	}

	if flags.Changed("trials") {
		cfg.Benchmark.Trials = runTrials
	}

	if flags.Changed("warmup") {
		cfg.Benchmark.Warmup = runWarmup
	}

	if flags.Changed("skip-overhead") {
		cfg.Benchmark.SkipOverhead = runSkipOverhead
	}
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	applyRunFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	reportFormat, err := report.ParseFormat(runReportFormat)
	if err != nil {
		return err
	}

	owner, err := fsutil.ParseOwner(cfg.Benchmark.ResultsOwner)
	if err != nil {
		return fmt.Errorf("parsing results_owner: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// Check remote storage before spending time on the benchmark.
	var uploader upload.Uploader

	if s3cfg := cfg.Benchmark.ResultsUpload.S3; s3cfg.Enabled {
		uploader, err = upload.NewS3Uploader(log, &s3cfg)
		if err != nil {
			return fmt.Errorf("creating S3 uploader: %w", err)
		}

		if err := uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("S3 preflight check failed: %w", err)
		}

		log.WithField("bucket", s3cfg.Bucket).Info("S3 preflight check passed")
	}

	executor := procexec.NewExecutor(log)

	targets, err := detectTargets(ctx, executor, cfg.Benchmark.Runtimes)
	if err != nil {
		return err
	}

	catalog, err := workload.NewCatalog(log, cfg.Workloads.Dir, cfg.Workloads.Entries)
	if err != nil {
		return fmt.Errorf("building workload catalog: %w", err)
	}

	workloads := catalog.Select(cfg.Benchmark.Workloads)

	controller := trial.NewController(log, executor, &trial.Config{
		WarmupTimeout: cfg.Benchmark.WarmupTimeout,
		TrialTimeout:  cfg.Benchmark.TrialTimeout,
	})

	opts := []matrix.Option{matrix.WithSystemInfo(sysinfo.Collect)}
	if !cfg.Benchmark.SkipOverhead {
		opts = append(opts, matrix.WithOverheadMeter(
			overhead.NewMeter(log, executor, cfg.Benchmark.Overhead),
		))
	}

	orchestrator := matrix.NewOrchestrator(log, controller, progress.NewLogObserver(log), opts...)

	startedAt := time.Now()

	m, runErr := orchestrator.RunAll(ctx, targets, workloads, cfg.Benchmark.Trials, cfg.Benchmark.Warmup)
	if errors.Is(runErr, matrix.ErrEmptyInput) {
		return fmt.Errorf("nothing to benchmark: %w", runErr)
	}

	if runErr != nil {
		log.WithError(runErr).Warn("Benchmark interrupted, saving partial results")
	}

	dir, filename := resultLocation(cfg, startedAt)

	path, err := results.Write(dir, filename, m, owner)
	if err != nil {
		return fmt.Errorf("saving results: %w", err)
	}

	log.WithField("path", path).Info("Results saved")

	if err := report.Write(os.Stdout, m, reportFormat); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	// Persisting and publishing finish even after an interrupt.
	persistCtx := context.WithoutCancel(ctx)
	runID := strings.TrimSuffix(filename, filepath.Ext(filename))

	if cfg.Database.Enabled {
		if err := saveToStore(persistCtx, &cfg.Database, runID, m); err != nil {
			log.WithError(err).Warn("Failed to store run history")
		}
	}

	if uploader != nil {
		key, err := uploader.UploadFile(persistCtx, path)
		if err != nil {
			log.WithError(err).Warn("Failed to upload results")
		} else {
			log.WithField("key", key).Info("Results uploaded")
		}
	}

	return runErr
}

// detectTargets discovers the installed runtimes and applies the name
// filter. Requested runtimes that are missing are reported and skipped by
// the orchestrator.
func detectTargets(ctx context.Context, executor procexec.Executor, names []string) ([]runtimes.Target, error) {
	detector := runtimes.NewDetector(log, runtimes.NewRegistry(), executor)

	detected, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detecting runtimes: %w", err)
	}

	targets, err := runtimes.Filter(detected, names)
	if err != nil {
		return nil, fmt.Errorf("selecting runtimes: %w", err)
	}

	for _, t := range targets {
		fields := logrus.Fields{
			"runtime":    t.Name,
			"executable": t.Executable,
			"version":    t.Version,
		}

		if !t.Available {
			log.WithFields(fields).Warn("Requested runtime is not available")

			continue
		}

		log.WithFields(fields).Info("Runtime detected")
	}

	return targets, nil
}

// resultLocation resolves the result file directory and name from --output
// and the configuration.
func resultLocation(cfg *config.Config, startedAt time.Time) (string, string) {
	if runOutput == "" {
		return cfg.Benchmark.ResultsDir, results.DefaultFilenameFor(
			startedAt, results.Format(cfg.Benchmark.ResultsFormat),
		)
	}

	if dir := filepath.Dir(runOutput); dir != "." || filepath.IsAbs(runOutput) {
		return dir, filepath.Base(runOutput)
	}

	return cfg.Benchmark.ResultsDir, runOutput
}

func saveToStore(ctx context.Context, cfg *config.DatabaseConfig, runID string, m *matrix.ResultMatrix) error {
	st := store.NewStore(log, cfg)

	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	if err := st.SaveMatrix(ctx, runID, m); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	log.WithField("run_id", runID).Info("Run stored")

	return nil
}

// Package trial runs the warmup and timed phases for a single
// (workload, runtime) cell.
package trial

import (
	"context"
	"slices"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/ethpandaops/runtimeoor/pkg/progress"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
	"github.com/sirupsen/logrus"
)

// Config holds the per-invocation timeouts of the controller.
type Config struct {
	WarmupTimeout time.Duration
	TrialTimeout  time.Duration
}

// DefaultConfig returns the controller configuration used when none is
// supplied.
func DefaultConfig() *Config {
	return &Config{
		WarmupTimeout: procexec.DefaultRunTimeout,
		TrialTimeout:  procexec.DefaultRunTimeout,
	}
}

// Controller measures one cell.
type Controller interface {
	// RunTrials executes command+[scriptPath] warmupRuns times without
	// recording anything, then numTrials times recording every duration,
	// and reduces the series. Individual failures never stop either phase.
	// Negative counts are treated as zero.
	RunTrials(
		ctx context.Context,
		obs progress.Observer,
		command []string,
		scriptPath string,
		numTrials, warmupRuns int,
	) *stats.CellStatistics
}

// NewController creates a new trial controller.
func NewController(
	log logrus.FieldLogger,
	exec procexec.Executor,
	cfg *Config,
) Controller {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &controller{
		log:  log.WithField("component", "trial"),
		exec: exec,
		cfg:  cfg,
	}
}

type controller struct {
	log  logrus.FieldLogger
	exec procexec.Executor
	cfg  *Config
}

// Ensure interface compliance.
var _ Controller = (*controller)(nil)

// RunTrials implements Controller.
func (c *controller) RunTrials(
	ctx context.Context,
	obs progress.Observer,
	command []string,
	scriptPath string,
	numTrials, warmupRuns int,
) *stats.CellStatistics {
	if obs == nil {
		obs = progress.Nop()
	}

	numTrials = max(numTrials, 0)
	warmupRuns = max(warmupRuns, 0)

	argv := append(slices.Clone(command), scriptPath)

	c.log.WithFields(logrus.Fields{
		"script": scriptPath,
		"warmup": warmupRuns,
		"trials": numTrials,
	}).Debug("Starting trials")

	for i := range warmupRuns {
		outcome := c.exec.Execute(ctx, argv, c.cfg.WarmupTimeout)

		if outcome.TimedOut {
			c.log.WithFields(logrus.Fields{
				"script": scriptPath,
				"warmup": i + 1,
			}).Info("Warmup timed out, continuing")
		}

		obs.Observe(progress.Event{
			Kind:     progress.KindWarmupFinished,
			Index:    i + 1,
			Total:    warmupRuns,
			Duration: outcome.Duration,
			ExitCode: outcome.ExitCode,
			TimedOut: outcome.TimedOut,
		})
	}

	var (
		durations = make([]float64, 0, numTrials)
		last      *procexec.Outcome
		usage     stats.UsageAccumulator
	)

	for i := range numTrials {
		outcome := c.exec.Execute(ctx, argv, c.cfg.TrialTimeout)

		durations = append(durations, outcome.Seconds())
		last = outcome

		usage.Add(outcome)

		obs.Observe(progress.Event{
			Kind:     progress.KindTrialFinished,
			Index:    i + 1,
			Total:    numTrials,
			Duration: outcome.Duration,
			ExitCode: outcome.ExitCode,
			TimedOut: outcome.TimedOut,
		})
	}

	cell := stats.Reduce(durations, last, numTrials, warmupRuns)
	cell.Usage = usage.Summary()

	return cell
}

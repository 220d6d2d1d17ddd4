package matrix

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/overhead"
	"github.com/ethpandaops/runtimeoor/pkg/progress"
	"github.com/ethpandaops/runtimeoor/pkg/runtimes"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
	"github.com/ethpandaops/runtimeoor/pkg/sysinfo"
	"github.com/ethpandaops/runtimeoor/pkg/trial"
	"github.com/ethpandaops/runtimeoor/pkg/workload"
	"github.com/sirupsen/logrus"
)

// ErrEmptyInput is returned when there is no available runtime or no
// workload to measure.
var ErrEmptyInput = errors.New("nothing to measure")

// CommandResolver returns the invocation prefix used to run a workload
// under a runtime.
type CommandResolver func(target runtimes.Target, wl workload.Ref) ([]string, error)

// SystemInfoFunc describes the measuring host.
type SystemInfoFunc func(ctx context.Context) (*sysinfo.SystemInfo, error)

// Orchestrator measures the cross product of runtimes and workloads.
type Orchestrator interface {
	// RunAll measures every workload under every available runtime, one
	// cell at a time in the supplied order. A failing cell is recorded as
	// degraded and never stops the run. Cancellation is honoured between
	// cells and returns the partial matrix with the context error.
	RunAll(
		ctx context.Context,
		targets []runtimes.Target,
		workloads []workload.Ref,
		numTrials, warmupRuns int,
	) (*ResultMatrix, error)
}

// Option customizes an orchestrator.
type Option func(*orchestrator)

// WithCommandResolver overrides how cell commands are built.
func WithCommandResolver(fn CommandResolver) Option {
	return func(o *orchestrator) {
		o.resolve = fn
	}
}

// WithOverheadMeter enables per-runtime overhead measurement before the
// cells are run.
func WithOverheadMeter(meter overhead.Meter) Option {
	return func(o *orchestrator) {
		o.meter = meter
	}
}

// WithSystemInfo attaches host information to the run metadata.
func WithSystemInfo(fn SystemInfoFunc) Option {
	return func(o *orchestrator) {
		o.systemInfo = fn
	}
}

// WithClock overrides the time source used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a new matrix orchestrator.
func NewOrchestrator(
	log logrus.FieldLogger,
	runner trial.Controller,
	obs progress.Observer,
	opts ...Option,
) Orchestrator {
	if obs == nil {
		obs = progress.Nop()
	}

	o := &orchestrator{
		log:     log.WithField("component", "orchestrator"),
		runner:  runner,
		obs:     obs,
		resolve: DefaultCommandResolver,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type orchestrator struct {
	log        logrus.FieldLogger
	runner     trial.Controller
	obs        progress.Observer
	resolve    CommandResolver
	meter      overhead.Meter
	systemInfo SystemInfoFunc
	now        func() time.Time
}

// Ensure interface compliance.
var _ Orchestrator = (*orchestrator)(nil)

// DefaultCommandResolver uses the invocation prefix resolved at detection.
func DefaultCommandResolver(target runtimes.Target, _ workload.Ref) ([]string, error) {
	if len(target.Command) == 0 {
		return nil, fmt.Errorf("runtime %q has no command", target.Name)
	}

	return target.Command, nil
}

// RunAll implements Orchestrator.
func (o *orchestrator) RunAll(
	ctx context.Context,
	targets []runtimes.Target,
	workloads []workload.Ref,
	numTrials, warmupRuns int,
) (*ResultMatrix, error) {
	available := make([]runtimes.Target, 0, len(targets))

	for _, t := range targets {
		if !t.Available {
			o.log.WithField("runtime", t.Name).Info("Skipping runtime (not available)")

			continue
		}

		available = append(available, t)
	}

	m := New(Metadata{
		Timestamp:  o.now().Format(TimestampFormat),
		NumTrials:  numTrials,
		WarmupRuns: warmupRuns,
		Platform:   runtime.GOOS,
	})

	if len(available) == 0 || len(workloads) == 0 {
		err := fmt.Errorf(
			"%w: %d available runtimes, %d workloads",
			ErrEmptyInput, len(available), len(workloads),
		)

		o.log.WithError(err).Error("Nothing to benchmark")

		return m, err
	}

	if o.systemInfo != nil {
		info, err := o.systemInfo(ctx)
		if err != nil {
			o.log.WithError(err).Warn("Failed to collect system information")
		} else {
			m.Metadata.System = info
		}
	}

	for _, t := range available {
		m.Runtimes.Set(t.Name, &RuntimeInfo{
			Name:       t.DisplayName,
			Version:    t.Version,
			Executable: t.Executable,
		})
	}

	if err := o.measureOverhead(ctx, m, available); err != nil {
		return m, err
	}

	o.log.WithFields(logrus.Fields{
		"runtimes":  len(available),
		"workloads": len(workloads),
		"trials":    numTrials,
		"warmup":    warmupRuns,
	}).Info("Starting benchmark matrix")

	total := len(available) * len(workloads)
	o.obs.Observe(progress.Event{Kind: progress.KindRunStarted, Total: total})

	done := 0

	for _, wl := range workloads {
		m.AddWorkload(wl.Name)

		o.obs.Observe(progress.Event{Kind: progress.KindWorkloadStarted, Workload: wl.Name})

		for _, target := range available {
			select {
			case <-ctx.Done():
				o.log.WithFields(logrus.Fields{
					"completed": done,
					"total":     total,
				}).Warn("Benchmark run cancelled")

				m.Metadata.TimestampEnd = o.now().Format(TimestampFormat)

				return m, fmt.Errorf("benchmark run interrupted: %w", ctx.Err())
			default:
			}

			cellObs := progress.WithCell(o.obs, wl.Name, target.Name)
			cellObs.Observe(progress.Event{Kind: progress.KindRuntimeStarted})

			cell, err := o.runCell(ctx, cellObs, target, wl, numTrials, warmupRuns)
			if err != nil {
				o.log.WithError(err).WithFields(logrus.Fields{
					"workload": wl.Name,
					"runtime":  target.Name,
				}).Warn("Cell failed, recording degraded result")

				cell = stats.Degraded(err, numTrials, warmupRuns)
			}

			m.Set(wl.Name, target.Name, cell)
			done++

			cellObs.Observe(progress.Event{
				Kind:     progress.KindCellFinished,
				Cell:     cell,
				ExitCode: cell.LastReturnCode,
				Err:      err,
			})
		}
	}

	m.Metadata.TimestampEnd = o.now().Format(TimestampFormat)

	o.obs.Observe(progress.Event{Kind: progress.KindRunFinished, Total: done})

	return m, nil
}

// runCell measures a single cell, converting resolver errors and panics
// into an error.
func (o *orchestrator) runCell(
	ctx context.Context,
	obs progress.Observer,
	target runtimes.Target,
	wl workload.Ref,
	numTrials, warmupRuns int,
) (cell *stats.CellStatistics, err error) {
	defer func() {
		if r := recover(); r != nil {
			cell = nil
			err = fmt.Errorf("unexpected failure measuring cell: %v", r)
		}
	}()

	command, err := o.resolve(target, wl)
	if err != nil {
		return nil, fmt.Errorf("resolving command: %w", err)
	}

	cell = o.runner.RunTrials(ctx, obs, command, wl.Path, numTrials, warmupRuns)
	if cell == nil {
		return nil, errors.New("trial controller returned no statistics")
	}

	return cell, nil
}

// measureOverhead records startup and import overhead per runtime when a
// meter is configured.
func (o *orchestrator) measureOverhead(
	ctx context.Context,
	m *ResultMatrix,
	targets []runtimes.Target,
) error {
	if o.meter == nil {
		return nil
	}

	for _, t := range targets {
		select {
		case <-ctx.Done():
			return fmt.Errorf("overhead measurement interrupted: %w", ctx.Err())
		default:
		}

		o.log.WithField("runtime", t.Name).Info("Measuring runtime overhead")

		info, _ := m.Runtimes.Get(t.Name)
		info.Overhead = o.meter.Measure(ctx, t)
	}

	return nil
}

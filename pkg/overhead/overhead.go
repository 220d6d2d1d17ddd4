// Package overhead measures fixed per-process costs of a runtime: how long
// the interpreter takes to start and how long common imports take.
package overhead

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethpandaops/runtimeoor/pkg/orderedmap"
	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/ethpandaops/runtimeoor/pkg/runtimes"
	"github.com/sirupsen/logrus"
)

const (
	startupCode = "import sys; sys.exit(0)"
	importCode  = "import time; start=time.perf_counter(); import %s; print(time.perf_counter()-start)"
)

// Config controls the overhead probes.
type Config struct {
	StartupRuns int `yaml:"startup_runs" mapstructure:"startup_runs"`
	// Modules are always import-timed.
	Modules []string `yaml:"modules" mapstructure:"modules"`
	// ScientificModules are import-timed only when the first of them can be
	// imported.
	ScientificModules []string `yaml:"scientific_modules" mapstructure:"scientific_modules"`
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() Config {
	return Config{
		StartupRuns:       5,
		Modules:           []string{"sys", "os", "time", "json"},
		ScientificModules: []string{"numpy", "scipy"},
	}
}

// StartupTime summarizes the successful startup probes. All fields are -1
// when none succeeded.
type StartupTime struct {
	Average float64 `json:"average" yaml:"average"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Samples int     `json:"samples" yaml:"samples"`
}

// Overhead is the fixed-cost profile of one runtime.
type Overhead struct {
	StartupTime StartupTime              `json:"startup_time" yaml:"startup_time"`
	ImportTimes *orderedmap.Map[float64] `json:"import_times" yaml:"import_times"`
}

// Meter measures runtime overhead.
type Meter interface {
	Measure(ctx context.Context, target runtimes.Target) *Overhead
}

// NewMeter creates a new overhead meter.
func NewMeter(log logrus.FieldLogger, exec procexec.Executor, cfg Config) Meter {
	return &meter{
		log:  log.WithField("component", "overhead"),
		exec: exec,
		cfg:  cfg,
	}
}

type meter struct {
	log  logrus.FieldLogger
	exec procexec.Executor
	cfg  Config
}

// Ensure interface compliance.
var _ Meter = (*meter)(nil)

// Measure implements Meter. Probes run sequentially since they are timing
// measurements.
func (m *meter) Measure(ctx context.Context, target runtimes.Target) *Overhead {
	log := m.log.WithField("runtime", target.Name)

	result := &Overhead{
		StartupTime: m.measureStartup(ctx, target),
		ImportTimes: m.measureImports(ctx, target),
	}

	if result.StartupTime.Samples > 0 {
		log.WithField("average", result.StartupTime.Average).Info("Startup time measured")
	} else {
		log.Warn("No successful startup probe")
	}

	for module, seconds := range result.ImportTimes.All() {
		if seconds > 0 {
			log.WithFields(logrus.Fields{
				"module":  module,
				"seconds": seconds,
			}).Debug("Import time measured")
		}
	}

	return result
}

func (m *meter) measureStartup(ctx context.Context, target runtimes.Target) StartupTime {
	argv := target.InlineCommand(startupCode)
	samples := make([]float64, 0, m.cfg.StartupRuns)

	for range m.cfg.StartupRuns {
		outcome := m.exec.Execute(ctx, argv, procexec.StartupProbeTimeout)
		if outcome.Succeeded() && outcome.Seconds() > 0 {
			samples = append(samples, outcome.Seconds())
		}
	}

	if len(samples) == 0 {
		return StartupTime{Average: -1, Min: -1, Max: -1}
	}

	summary := StartupTime{Min: samples[0], Max: samples[0], Samples: len(samples)}

	var sum float64

	for _, s := range samples {
		sum += s
		summary.Min = min(summary.Min, s)
		summary.Max = max(summary.Max, s)
	}

	summary.Average = sum / float64(len(samples))

	return summary
}

func (m *meter) measureImports(ctx context.Context, target runtimes.Target) *orderedmap.Map[float64] {
	modules := append([]string(nil), m.cfg.Modules...)

	if len(m.cfg.ScientificModules) > 0 {
		probe := target.InlineCommand("import " + m.cfg.ScientificModules[0])

		outcome := m.exec.Execute(ctx, probe, procexec.ExtendedProbeTimeout)
		if outcome.Succeeded() {
			modules = append(modules, m.cfg.ScientificModules...)
		}
	}

	times := orderedmap.New[float64]()

	for _, module := range modules {
		outcome := m.exec.Execute(
			ctx, target.InlineCommand(fmt.Sprintf(importCode, module)), procexec.ImportProbeTimeout,
		)

		times.Set(module, parseImportTime(outcome))
	}

	return times
}

// parseImportTime reads the seconds printed by the import probe, or -1.
func parseImportTime(outcome *procexec.Outcome) float64 {
	if !outcome.Succeeded() {
		return -1
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(outcome.Stdout), 64)
	if err != nil {
		return -1
	}

	return seconds
}

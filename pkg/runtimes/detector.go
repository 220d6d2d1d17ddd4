package runtimes

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Target is a resolved runtime a workload can be executed under.
type Target struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Executable  string   `json:"executable" yaml:"executable"`
	Version     string   `json:"version" yaml:"version"`
	Available   bool     `json:"available" yaml:"available"`
	Command     []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// ScriptCommand returns the argv running script with the target.
func (t Target) ScriptCommand(script string) []string {
	return append(slices.Clone(t.Command), script)
}

// InlineCommand returns the argv evaluating code through the interpreter's
// `-c` flag.
func (t Target) InlineCommand(code string) []string {
	return append(slices.Clone(t.Command), "-c", code)
}

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(file string) (string, error)

// Detector discovers which runtimes are installed.
type Detector interface {
	// Detect returns one target per registered runtime, in registry order.
	Detect(ctx context.Context) ([]Target, error)
}

// DetectorOption customizes a detector.
type DetectorOption func(*detector)

// WithLookPath overrides how executables are located on PATH.
func WithLookPath(fn LookPathFunc) DetectorOption {
	return func(d *detector) {
		d.lookPath = fn
	}
}

// NewDetector creates a detector that probes every runtime in registry.
func NewDetector(
	log logrus.FieldLogger,
	registry Registry,
	executor procexec.Executor,
	opts ...DetectorOption,
) Detector {
	d := &detector{
		log:      log.WithField("component", "runtime-detector"),
		registry: registry,
		exec:     executor,
		lookPath: defaultLookPath,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type detector struct {
	log      logrus.FieldLogger
	registry Registry
	exec     procexec.Executor
	lookPath LookPathFunc
}

// Ensure interface compliance.
var _ Detector = (*detector)(nil)

func defaultLookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Detect implements Detector. Version probes are not measurements, so the
// runtimes are probed concurrently.
func (d *detector) Detect(ctx context.Context) ([]Target, error) {
	kinds := d.registry.List()
	targets := make([]Target, len(kinds))

	g, gCtx := errgroup.WithContext(ctx)

	for i, kind := range kinds {
		spec, err := d.registry.Get(kind)
		if err != nil {
			return nil, fmt.Errorf("resolving runtime spec: %w", err)
		}

		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			targets[i] = d.detectOne(gCtx, spec)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detecting runtimes: %w", err)
	}

	return targets, nil
}

// detectOne resolves and probes a single runtime.
func (d *detector) detectOne(ctx context.Context, spec Spec) Target {
	target := Target{
		Name:        string(spec.Kind()),
		Kind:        spec.Kind(),
		DisplayName: spec.DisplayName(),
		Executable:  spec.Binary(),
	}

	log := d.log.WithField("runtime", target.Name)

	path, err := d.lookPath(spec.Binary())
	if err != nil {
		log.WithError(err).Debug("Runtime not found on PATH")

		return target
	}

	target.Executable = path

	probes := spec.VersionProbes(path)
	outputs := make([]string, len(probes))

	for i, probe := range probes {
		outcome := d.exec.Execute(ctx, probe.Args, probe.Timeout)

		// A launch failure or a timeout leaves the output empty.
		if outcome.ExitCode == procexec.ExitCodeFailed {
			if i == 0 && spec.RequiresVersion() {
				log.WithField("stderr", outcome.Stderr).
					Warn("Runtime version probe failed")

				return target
			}

			continue
		}

		if i > 0 && outcome.ExitCode != 0 {
			continue
		}

		outputs[i] = versionText(outcome)
	}

	target.Version = spec.FormatVersion(outputs)
	target.Available = true
	target.Command = spec.CommandPrefix(path)

	log.WithFields(logrus.Fields{
		"executable": path,
		"version":    target.Version,
	}).Debug("Runtime detected")

	return target
}

// versionText prefers stdout and falls back to stderr, which older Python
// releases print their version to.
func versionText(outcome *procexec.Outcome) string {
	text := strings.TrimSpace(outcome.Stdout)
	if text == "" {
		text = strings.TrimSpace(outcome.Stderr)
	}

	return text
}

// firstVersion returns the first line of the first probe output.
func firstVersion(outputs []string) string {
	if len(outputs) == 0 || outputs[0] == "" {
		return "unknown"
	}

	line, _, _ := strings.Cut(outputs[0], "\n")

	return strings.TrimSpace(line)
}

// Filter selects targets by name. Without names it keeps every available
// target in detection order. With names it keeps the requested order, and
// unknown names are an error. Requested but unavailable targets are kept so
// callers can report them.
func Filter(targets []Target, names []string) ([]Target, error) {
	if len(names) == 0 {
		out := make([]Target, 0, len(targets))

		for _, t := range targets {
			if t.Available {
				out = append(out, t)
			}
		}

		return out, nil
	}

	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		byName[t.Name] = t
	}

	out := make([]Target, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown runtime %q", name)
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		out = append(out, t)
	}

	return out, nil
}

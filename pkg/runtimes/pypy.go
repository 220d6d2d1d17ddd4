package runtimes

import (
	"strings"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
)

type pypySpec struct{}

// NewPyPySpec creates a new PyPy runtime specification.
func NewPyPySpec() Spec {
	return &pypySpec{}
}

func (s *pypySpec) Kind() Kind {
	return KindPyPy
}

func (s *pypySpec) DisplayName() string {
	return "PyPy"
}

func (s *pypySpec) Binary() string {
	return "pypy3"
}

func (s *pypySpec) CommandPrefix(executable string) []string {
	return []string{executable}
}

func (s *pypySpec) VersionProbes(executable string) []Probe {
	return []Probe{
		{Args: []string{executable, "--version"}, Timeout: procexec.VersionProbeTimeout},
	}
}

// FormatVersion flattens the output; PyPy prints its own release on the
// line after the Python language version.
func (s *pypySpec) FormatVersion(outputs []string) string {
	if len(outputs) == 0 || outputs[0] == "" {
		return "unknown"
	}

	return strings.Join(strings.Fields(outputs[0]), " ")
}

func (s *pypySpec) RequiresVersion() bool {
	return true
}

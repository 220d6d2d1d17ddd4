package runtimes

import "github.com/ethpandaops/runtimeoor/pkg/procexec"

type cpythonSpec struct{}

// NewCPythonSpec creates a new CPython runtime specification.
func NewCPythonSpec() Spec {
	return &cpythonSpec{}
}

func (s *cpythonSpec) Kind() Kind {
	return KindCPython
}

func (s *cpythonSpec) DisplayName() string {
	return "CPython"
}

func (s *cpythonSpec) Binary() string {
	return "python3"
}

func (s *cpythonSpec) CommandPrefix(executable string) []string {
	return []string{executable}
}

func (s *cpythonSpec) VersionProbes(executable string) []Probe {
	return []Probe{
		{Args: []string{executable, "--version"}, Timeout: procexec.VersionProbeTimeout},
	}
}

func (s *cpythonSpec) FormatVersion(outputs []string) string {
	return firstVersion(outputs)
}

func (s *cpythonSpec) RequiresVersion() bool {
	return true
}

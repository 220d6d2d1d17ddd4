package runtimes

import (
	"fmt"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
)

type uvSpec struct{}

// NewUVSpec creates a new uv runtime specification. Scripts run through
// `uv run --no-project python` so uv never tries to build the surrounding
// directory as a package.
func NewUVSpec() Spec {
	return &uvSpec{}
}

func (s *uvSpec) Kind() Kind {
	return KindUV
}

func (s *uvSpec) DisplayName() string {
	return "UV"
}

func (s *uvSpec) Binary() string {
	return "uv"
}

func (s *uvSpec) CommandPrefix(executable string) []string {
	return []string{executable, "run", "--no-project", "python"}
}

func (s *uvSpec) VersionProbes(executable string) []Probe {
	return []Probe{
		{Args: []string{executable, "--version"}, Timeout: procexec.VersionProbeTimeout},
		{Args: []string{executable, "run", "python", "--version"}, Timeout: procexec.ExtendedProbeTimeout},
	}
}

func (s *uvSpec) FormatVersion(outputs []string) string {
	uvVersion := ""
	if len(outputs) > 0 {
		uvVersion = outputs[0]
	}

	if uvVersion == "" {
		return "unknown version"
	}

	if len(outputs) > 1 && outputs[1] != "" {
		return fmt.Sprintf("%s (Python: %s)", uvVersion, outputs[1])
	}

	return uvVersion
}

// RequiresVersion is false: a uv binary on PATH is usable even when its
// version cannot be read.
func (s *uvSpec) RequiresVersion() bool {
	return false
}

// Package runtimes describes the interpreter runtimes that workloads can be
// measured under and how to invoke each of them.
package runtimes

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Kind identifies a supported runtime.
type Kind string

const (
	KindCPython Kind = "python3"
	KindPyPy    Kind = "pypy"
	KindUV      Kind = "uv"
)

// Probe is a diagnostic invocation used to learn a runtime's version.
type Probe struct {
	Args    []string
	Timeout time.Duration
}

// Spec provides runtime-specific invocation rules.
type Spec interface {
	// Kind returns the runtime kind.
	Kind() Kind

	// DisplayName returns the human readable runtime name.
	DisplayName() string

	// Binary returns the executable name looked up on PATH.
	Binary() string

	// CommandPrefix returns the tokens that precede a script path.
	CommandPrefix(executable string) []string

	// VersionProbes returns the probes run against the resolved executable.
	VersionProbes(executable string) []Probe

	// FormatVersion combines probe outputs into a version string. An empty
	// entry marks a probe that failed.
	FormatVersion(outputs []string) string

	// RequiresVersion reports whether a failing first probe makes the
	// runtime unavailable.
	RequiresVersion() bool
}

// Registry manages runtime specifications.
type Registry interface {
	Get(kind Kind) (Spec, error)
	Register(spec Spec)
	List() []Kind
}

// NewRegistry creates a registry with all supported runtimes.
func NewRegistry() Registry {
	r := &registry{
		specs: make(map[Kind]Spec, 3),
	}

	r.Register(NewCPythonSpec())
	r.Register(NewPyPySpec())
	r.Register(NewUVSpec())

	return r
}

type registry struct {
	mu    sync.RWMutex
	order []Kind
	specs map[Kind]Spec
}

// Ensure interface compliance.
var _ Registry = (*registry)(nil)

// Get returns the spec for the given runtime kind.
func (r *registry) Get(kind Kind) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown runtime: %s", kind)
	}

	return spec, nil
}

// Register adds a spec to the registry, replacing any spec of the same kind.
func (r *registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Kind()]; !exists {
		r.order = append(r.order, spec.Kind())
	}

	r.specs[spec.Kind()] = spec
}

// List returns all registered runtime kinds in registration order.
func (r *registry) List() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// IsKnown reports whether name is one of the built-in runtime kinds.
func IsKnown(name string) bool {
	switch Kind(name) {
	case KindCPython, KindPyPy, KindUV:
		return true
	default:
		return false
	}
}

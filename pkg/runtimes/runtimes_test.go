package runtimes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []Kind{KindCPython, KindPyPy, KindUV}, r.List())

	spec, err := r.Get(KindPyPy)
	require.NoError(t, err)
	assert.Equal(t, "PyPy", spec.DisplayName())
	assert.Equal(t, "pypy3", spec.Binary())

	_, err = r.Get(Kind("jython"))
	assert.Error(t, err)

	// Re-registering keeps its position.
	r.Register(NewCPythonSpec())
	assert.Equal(t, []Kind{KindCPython, KindPyPy, KindUV}, r.List())
}

func TestTarget_Commands(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		exe      string
		expected []string
	}{
		{
			name:     "cpython",
			spec:     NewCPythonSpec(),
			exe:      "/usr/bin/python3",
			expected: []string{"/usr/bin/python3", "/w/bench.py"},
		},
		{
			name:     "pypy",
			spec:     NewPyPySpec(),
			exe:      "/opt/pypy/bin/pypy3",
			expected: []string{"/opt/pypy/bin/pypy3", "/w/bench.py"},
		},
		{
			name:     "uv",
			spec:     NewUVSpec(),
			exe:      "/usr/local/bin/uv",
			expected: []string{"/usr/local/bin/uv", "run", "--no-project", "python", "/w/bench.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := Target{Command: tt.spec.CommandPrefix(tt.exe)}

			assert.Equal(t, tt.expected, target.ScriptCommand("/w/bench.py"))
			assert.Len(t, target.Command, len(tt.expected)-1, "prefix must not be extended")
		})
	}
}

func TestTarget_InlineCommand(t *testing.T) {
	target := Target{Command: NewUVSpec().CommandPrefix("uv")}

	assert.Equal(t,
		[]string{"uv", "run", "--no-project", "python", "-c", "import sys; sys.exit(0)"},
		target.InlineCommand("import sys; sys.exit(0)"),
	)
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		outputs  []string
		expected string
	}{
		{name: "cpython", spec: NewCPythonSpec(), outputs: []string{"Python 3.12.3"}, expected: "Python 3.12.3"},
		{name: "cpython empty", spec: NewCPythonSpec(), outputs: []string{""}, expected: "unknown"},
		{
			name:     "pypy multi-line",
			spec:     NewPyPySpec(),
			outputs:  []string{"Python 3.10.14\n[PyPy 7.3.17 with GCC 10.2.1]"},
			expected: "Python 3.10.14 [PyPy 7.3.17 with GCC 10.2.1]",
		},
		{name: "uv with python", spec: NewUVSpec(), outputs: []string{"uv 0.4.0", "Python 3.12.1"}, expected: "uv 0.4.0 (Python: Python 3.12.1)"},
		{name: "uv without python", spec: NewUVSpec(), outputs: []string{"uv 0.4.0", ""}, expected: "uv 0.4.0"},
		{name: "uv unknown", spec: NewUVSpec(), outputs: []string{"", ""}, expected: "unknown version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.spec.FormatVersion(tt.outputs))
		})
	}
}

// probeExecutor answers version probes from a table keyed by the joined argv.
type probeExecutor struct {
	mu        sync.Mutex
	responses map[string]*procexec.Outcome
	timeouts  map[string]time.Duration
}

func (p *probeExecutor) Execute(
	_ context.Context,
	argv []string,
	timeout time.Duration,
) *procexec.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.Join(argv, " ")
	if p.timeouts == nil {
		p.timeouts = make(map[string]time.Duration, 4)
	}

	p.timeouts[key] = timeout

	if o, ok := p.responses[key]; ok {
		return o
	}

	return &procexec.Outcome{ExitCode: procexec.ExitCodeFailed, Stderr: "failed to launch process"}
}

func TestDetector_Detect(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	exec := &probeExecutor{
		responses: map[string]*procexec.Outcome{
			"/usr/bin/python3 --version":       {Stdout: "Python 3.12.3\n"},
			"/usr/bin/uv --version":            {Stdout: "uv 0.4.0\n"},
			"/usr/bin/uv run python --version": {Stderr: "Python 3.11.0\n"},
		},
	}

	lookPath := func(file string) (string, error) {
		switch file {
		case "python3", "uv":
			return "/usr/bin/" + file, nil
		default:
			return "", errors.New("executable file not found in $PATH")
		}
	}

	d := NewDetector(log, NewRegistry(), exec, WithLookPath(lookPath))

	targets, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "python3", targets[0].Name)
	assert.True(t, targets[0].Available)
	assert.Equal(t, "Python 3.12.3", targets[0].Version)
	assert.Equal(t, []string{"/usr/bin/python3"}, targets[0].Command)

	assert.Equal(t, "pypy", targets[1].Name)
	assert.False(t, targets[1].Available)
	assert.Equal(t, "pypy3", targets[1].Executable)
	assert.Empty(t, targets[1].Command)

	assert.Equal(t, "uv", targets[2].Name)
	assert.True(t, targets[2].Available)
	assert.Equal(t, "uv 0.4.0 (Python: Python 3.11.0)", targets[2].Version)
	assert.Equal(t, []string{"/usr/bin/uv", "run", "--no-project", "python"}, targets[2].Command)

	assert.Equal(t, procexec.VersionProbeTimeout, exec.timeouts["/usr/bin/python3 --version"])
	assert.Equal(t, procexec.ExtendedProbeTimeout, exec.timeouts["/usr/bin/uv run python --version"])
}

func TestDetector_FailingProbeMakesUnavailable(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	exec := &probeExecutor{
		responses: map[string]*procexec.Outcome{
			"/bin/pypy3 --version": {ExitCode: procexec.ExitCodeFailed, Stderr: procexec.TimeoutMarker, TimedOut: true},
		},
	}

	d := NewDetector(log, NewRegistry(), exec, WithLookPath(func(file string) (string, error) {
		return "/bin/" + file, nil
	}))

	targets, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.False(t, targets[0].Available, "python3 probe cannot launch")
	assert.False(t, targets[1].Available, "pypy probe timed out")
	assert.True(t, targets[2].Available, "uv is usable without a version")
	assert.Equal(t, "unknown version", targets[2].Version)
}

func TestFilter(t *testing.T) {
	targets := []Target{
		{Name: "python3", Available: true},
		{Name: "pypy", Available: false},
		{Name: "uv", Available: true},
	}

	tests := []struct {
		name     string
		names    []string
		expected []string
		wantErr  bool
	}{
		{name: "defaults to available", names: nil, expected: []string{"python3", "uv"}},
		{name: "requested order wins", names: []string{"uv", "python3"}, expected: []string{"uv", "python3"}},
		{name: "keeps unavailable", names: []string{"pypy"}, expected: []string{"pypy"}},
		{name: "drops duplicates", names: []string{"uv", "uv"}, expected: []string{"uv"}},
		{name: "unknown runtime", names: []string{"jython"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Filter(targets, tt.names)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			names := make([]string, 0, len(out))
			for _, o := range out {
				names = append(names, o.Name)
			}

			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown("python3"))
	assert.True(t, IsKnown("pypy"))
	assert.True(t, IsKnown("uv"))
	assert.False(t, IsKnown("CPython"))
}

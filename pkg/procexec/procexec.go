// Package procexec launches external processes with a hard timeout and
// captures their output, exit status and wall-clock duration.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// ExitCodeFailed is reported for timeouts and launch failures.
	ExitCodeFailed = -1

	// TimeoutMarker replaces stderr when a process is killed on timeout.
	TimeoutMarker = "TIMEOUT"

	// DefaultRunTimeout bounds warmup and timed workload runs.
	DefaultRunTimeout = 600 * time.Second

	// StartupProbeTimeout bounds a single interpreter startup probe.
	StartupProbeTimeout = 30 * time.Second

	// VersionProbeTimeout bounds a `--version` probe.
	VersionProbeTimeout = 5 * time.Second

	// ExtendedProbeTimeout bounds slower diagnostic probes such as
	// `uv run python --version` or a numpy availability check.
	ExtendedProbeTimeout = 10 * time.Second

	// ImportProbeTimeout bounds a single module import timing probe.
	ImportProbeTimeout = 60 * time.Second

	// waitDelay caps how long Wait blocks on inherited pipes after a kill.
	waitDelay = 5 * time.Second
)

var errEmptyCommand = errors.New("empty command")

// Outcome is the result of one process invocation.
type Outcome struct {
	Duration   time.Duration
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	UserTime   time.Duration
	SystemTime time.Duration
	// MaxRSSBytes is the peak resident set size of the child, 0 if unknown.
	MaxRSSBytes int64
}

// Seconds returns the elapsed wall-clock time in seconds.
func (o *Outcome) Seconds() float64 {
	return o.Duration.Seconds()
}

// Succeeded reports whether the process ran to completion with exit code 0.
func (o *Outcome) Succeeded() bool {
	return o.ExitCode == 0 && !o.TimedOut
}

// Executor runs a single external command.
type Executor interface {
	// Execute runs argv (argv[0] is the program, no shell involved) and
	// returns its outcome. Failures are encoded in the outcome, never
	// returned as errors. Cancelling ctx does not interrupt a running
	// process; only the timeout does. A non-positive timeout disables it.
	Execute(ctx context.Context, argv []string, timeout time.Duration) *Outcome
}

// NewExecutor creates a new process executor.
func NewExecutor(log logrus.FieldLogger) Executor {
	return &executor{
		log: log.WithField("component", "procexec"),
	}
}

type executor struct {
	log logrus.FieldLogger
}

// Ensure interface compliance.
var _ Executor = (*executor)(nil)

// Execute implements Executor.
func (e *executor) Execute(
	ctx context.Context,
	argv []string,
	timeout time.Duration,
) *Outcome {
	if len(argv) == 0 {
		return launchFailure(0, errEmptyCommand)
	}

	// The child must survive parent cancellation and be bound only by its
	// own deadline.
	baseCtx := context.WithoutCancel(ctx)

	var (
		execCtx context.Context
		cancel  context.CancelFunc
	)

	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(baseCtx, timeout)
	} else {
		execCtx, cancel = context.WithCancel(baseCtx)
	}
	defer cancel()

	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)

	// Own process group so a timeout kills every descendant too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}

		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	outcome := &Outcome{
		Duration: elapsed,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if cmd.ProcessState != nil {
		outcome.UserTime = cmd.ProcessState.UserTime()
		outcome.SystemTime = cmd.ProcessState.SystemTime()
		outcome.MaxRSSBytes = maxRSSBytes(cmd.ProcessState)
	}

	switch {
	case err == nil:
		outcome.ExitCode = 0
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		outcome.ExitCode = ExitCodeFailed
		outcome.TimedOut = true
		outcome.Stderr = TimeoutMarker
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// Exited, but a leftover descendant held the output pipes open.
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return launchFailure(elapsed, err)
		}

		outcome.ExitCode = exitErr.ExitCode()
	}

	e.log.WithFields(logrus.Fields{
		"command":   argv[0],
		"exit_code": outcome.ExitCode,
		"duration":  elapsed,
		"timed_out": outcome.TimedOut,
	}).Debug("Process finished")

	return outcome
}

// launchFailure builds the outcome for a process that could not be started.
func launchFailure(elapsed time.Duration, err error) *Outcome {
	return &Outcome{
		Duration: elapsed,
		Stderr:   fmt.Sprintf("failed to launch process: %v", err),
		ExitCode: ExitCodeFailed,
	}
}

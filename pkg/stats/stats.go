// Package stats reduces a series of timed trials into summary statistics.
package stats

import (
	"math"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
)

// Unmeasured is the sentinel stored in every numeric field of a cell that
// has no recorded duration.
const Unmeasured = -1.0

// errorExcerptLen caps the error text shown for failed cells.
const errorExcerptLen = 200

// CellStatistics is the reduced result of one (workload, runtime) cell.
type CellStatistics struct {
	Times          []float64 `json:"times" yaml:"times"`
	Average        float64   `json:"average" yaml:"average"`
	Min            float64   `json:"min" yaml:"min"`
	Max            float64   `json:"max" yaml:"max"`
	StdDev         float64   `json:"std_dev" yaml:"std_dev"`
	NumTrials      int       `json:"num_trials" yaml:"num_trials"`
	WarmupRuns     int       `json:"warmup_runs" yaml:"warmup_runs"`
	LastStdout     string    `json:"last_stdout" yaml:"last_stdout"`
	LastStderr     string    `json:"last_stderr" yaml:"last_stderr"`
	LastReturnCode int       `json:"last_returncode" yaml:"last_returncode"`
	Usage          *Usage    `json:"usage,omitempty" yaml:"usage,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Reduce converts the durations (seconds) of the timed trials of a cell and
// the outcome of its last trial into a CellStatistics. The standard deviation
// uses the population divisor N. An empty series yields the Unmeasured
// sentinel in all numeric fields and zero trials. Inputs are not modified.
func Reduce(
	durations []float64,
	last *procexec.Outcome,
	numTrials, warmupRuns int,
) *CellStatistics {
	cell := &CellStatistics{
		Times:      make([]float64, len(durations)),
		WarmupRuns: warmupRuns,
	}

	copy(cell.Times, durations)

	if last != nil {
		cell.LastStdout = last.Stdout
		cell.LastStderr = last.Stderr
		cell.LastReturnCode = last.ExitCode
	}

	if len(durations) == 0 {
		cell.Average = Unmeasured
		cell.Min = Unmeasured
		cell.Max = Unmeasured
		cell.StdDev = Unmeasured
		cell.NumTrials = 0

		return cell
	}

	minVal, maxVal := durations[0], durations[0]

	var sum float64

	for _, d := range durations {
		sum += d
		minVal = math.Min(minVal, d)
		maxVal = math.Max(maxVal, d)
	}

	mean := sum / float64(len(durations))

	var variance float64

	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}

	variance /= float64(len(durations))

	cell.Average = mean
	cell.Min = minVal
	cell.Max = maxVal
	cell.StdDev = math.Sqrt(variance)
	cell.NumTrials = numTrials

	return cell
}

// Degraded builds the record for a cell whose orchestration failed before
// producing any measurement.
func Degraded(err error, numTrials, warmupRuns int) *CellStatistics {
	cell := Reduce(nil, nil, numTrials, warmupRuns)
	cell.LastReturnCode = procexec.ExitCodeFailed

	if err != nil {
		cell.Error = err.Error()
	}

	return cell
}

// Valid reports whether the cell holds a usable measurement.
func (c *CellStatistics) Valid() bool {
	return c != nil && c.Average > 0
}

// Failed reports whether the last trial did not exit cleanly or the cell
// could not be computed at all.
func (c *CellStatistics) Failed() bool {
	return c == nil || c.Error != "" || c.LastReturnCode != 0
}

// ErrorExcerpt returns the diagnostic text of a failed cell truncated for
// display.
func (c *CellStatistics) ErrorExcerpt() string {
	if c == nil {
		return ""
	}

	text := c.Error
	if text == "" {
		text = c.LastStderr
	}

	runes := []rune(text)
	if len(runes) > errorExcerptLen {
		return string(runes[:errorExcerptLen])
	}

	return text
}

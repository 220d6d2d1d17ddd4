// Package matrix drives the measurement of every (workload, runtime) cell
// and assembles the results.
package matrix

import (
	"github.com/ethpandaops/runtimeoor/pkg/orderedmap"
	"github.com/ethpandaops/runtimeoor/pkg/overhead"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
	"github.com/ethpandaops/runtimeoor/pkg/sysinfo"
)

// TimestampFormat is the layout of Metadata timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000000"

// Metadata describes a run.
type Metadata struct {
	Timestamp    string              `json:"timestamp" yaml:"timestamp"`
	TimestampEnd string              `json:"timestamp_end,omitempty" yaml:"timestamp_end,omitempty"`
	NumTrials    int                 `json:"num_trials" yaml:"num_trials"`
	WarmupRuns   int                 `json:"warmup_runs" yaml:"warmup_runs"`
	Platform     string              `json:"platform" yaml:"platform"`
	System       *sysinfo.SystemInfo `json:"system,omitempty" yaml:"system,omitempty"`
}

// RuntimeInfo describes a runtime that took part in a run.
type RuntimeInfo struct {
	Name       string             `json:"name" yaml:"name"`
	Version    string             `json:"version" yaml:"version"`
	Executable string             `json:"executable" yaml:"executable"`
	Overhead   *overhead.Overhead `json:"overhead,omitempty" yaml:"overhead,omitempty"`
}

// Row maps runtime name to the statistics of one workload.
type Row = orderedmap.Map[*stats.CellStatistics]

// ResultMatrix holds the results of a run keyed by workload then runtime,
// both in measurement order.
type ResultMatrix struct {
	Metadata   Metadata                      `json:"metadata" yaml:"metadata"`
	Runtimes   *orderedmap.Map[*RuntimeInfo] `json:"runtimes" yaml:"runtimes"`
	Benchmarks *orderedmap.Map[*Row]         `json:"benchmarks" yaml:"benchmarks"`
}

// New creates an empty matrix.
func New(meta Metadata) *ResultMatrix {
	return &ResultMatrix{
		Metadata:   meta,
		Runtimes:   orderedmap.New[*RuntimeInfo](),
		Benchmarks: orderedmap.New[*Row](),
	}
}

// AddWorkload registers a workload row, keeping an existing one.
func (m *ResultMatrix) AddWorkload(workload string) *Row {
	if row, ok := m.Benchmarks.Get(workload); ok {
		return row
	}

	row := orderedmap.New[*stats.CellStatistics]()
	m.Benchmarks.Set(workload, row)

	return row
}

// Set stores the statistics of a cell.
func (m *ResultMatrix) Set(workload, runtime string, cell *stats.CellStatistics) {
	m.AddWorkload(workload).Set(runtime, cell)
}

// Cell returns the statistics of a cell.
func (m *ResultMatrix) Cell(workload, runtime string) (*stats.CellStatistics, bool) {
	row, ok := m.Benchmarks.Get(workload)
	if !ok {
		return nil, false
	}

	return row.Get(runtime)
}

// Workloads returns the workload names in measurement order.
func (m *ResultMatrix) Workloads() []string {
	return m.Benchmarks.Keys()
}

// CellCount returns the number of recorded cells.
func (m *ResultMatrix) CellCount() int {
	var n int

	for _, row := range m.Benchmarks.All() {
		n += row.Len()
	}

	return n
}

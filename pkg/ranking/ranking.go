// Package ranking orders the runtimes of each workload by average duration.
package ranking

import (
	"slices"

	"github.com/ethpandaops/runtimeoor/pkg/matrix"
)

// Entry is one ranked runtime of a workload.
type Entry struct {
	Runtime string  `json:"runtime"`
	Average float64 `json:"average"`
	StdDev  float64 `json:"std_dev"`
	// SpeedupFactor is average / fastest average: 1.0 for the fastest
	// runtime, 2.0 for one taking twice as long.
	SpeedupFactor float64 `json:"speedup_factor"`
	// Relative is fastest average / average, the share of the fastest
	// runtime's speed this runtime reaches.
	Relative float64 `json:"relative"`
	Baseline bool    `json:"baseline"`
}

// Failure is a cell whose last trial did not exit cleanly.
type Failure struct {
	Runtime  string `json:"runtime"`
	ExitCode int    `json:"exit_code"`
	Excerpt  string `json:"excerpt"`
}

// WorkloadRanking is the ranking of one workload.
type WorkloadRanking struct {
	Workload       string    `json:"workload"`
	Entries        []Entry   `json:"entries"`
	NoValidResults bool      `json:"no_valid_results"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Rank ranks every workload of m in measurement order. Only cells with a
// positive average take part; ties keep the runtime measurement order.
func Rank(m *matrix.ResultMatrix) []WorkloadRanking {
	if m == nil || m.Benchmarks == nil {
		return nil
	}

	out := make([]WorkloadRanking, 0, m.Benchmarks.Len())

	for workload, row := range m.Benchmarks.All() {
		wr := WorkloadRanking{
			Workload: workload,
			Entries:  make([]Entry, 0, row.Len()),
		}

		for runtime, cell := range row.All() {
			if cell == nil {
				continue
			}

			if cell.Failed() {
				wr.Failures = append(wr.Failures, Failure{
					Runtime:  runtime,
					ExitCode: cell.LastReturnCode,
					Excerpt:  cell.ErrorExcerpt(),
				})
			}

			if !cell.Valid() {
				continue
			}

			wr.Entries = append(wr.Entries, Entry{
				Runtime: runtime,
				Average: cell.Average,
				StdDev:  cell.StdDev,
			})
		}

		if len(wr.Entries) == 0 {
			wr.NoValidResults = true
			out = append(out, wr)

			continue
		}

		slices.SortStableFunc(wr.Entries, func(a, b Entry) int {
			switch {
			case a.Average < b.Average:
				return -1
			case a.Average > b.Average:
				return 1
			default:
				return 0
			}
		})

		fastest := wr.Entries[0].Average

		for i := range wr.Entries {
			e := &wr.Entries[i]
			e.SpeedupFactor = e.Average / fastest
			e.Relative = fastest / e.Average
			e.Baseline = i == 0
		}

		// The fastest entry is exactly the baseline.
		wr.Entries[0].SpeedupFactor = 1.0
		wr.Entries[0].Relative = 1.0

		out = append(out, wr)
	}

	return out
}

package report

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/ranking"
	"github.com/ethpandaops/runtimeoor/pkg/sysinfo"
)

// failureRow is one failed cell in the markdown failures section.
type failureRow struct {
	Workload string
	Failure  ranking.Failure
}

// Markdown renders a markdown summary of m. The failures section comes
// last and is truncated so the output stays under maxChars characters;
// maxChars <= 0 disables the cap.
func Markdown(m *matrix.ResultMatrix, runID string, maxChars int) string {
	var sb strings.Builder

	sb.Grow(4096)

	rankings := ranking.Rank(m)

	writeTitle(&sb, runID)
	writeOverview(&sb, m)
	writeRuntimes(&sb, m)
	writeRankings(&sb, m, rankings)
	writeSystem(&sb, m.Metadata.System)

	var failures []failureRow

	for _, wr := range rankings {
		for _, f := range wr.Failures {
			failures = append(failures, failureRow{Workload: wr.Workload, Failure: f})
		}
	}

	writeFailures(&sb, failures, maxChars)

	return sb.String()
}

func writeTitle(sb *strings.Builder, runID string) {
	if runID == "" {
		sb.WriteString("# Runtime Benchmark Results\n\n")

		return
	}

	fmt.Fprintf(sb, "# Runtime Benchmark Run: %s\n\n", runID)
}

func writeOverview(sb *strings.Builder, m *matrix.ResultMatrix) {
	md := m.Metadata

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")

	if md.Timestamp != "" {
		fmt.Fprintf(sb, "| Started | %s |\n", md.Timestamp)
	}

	if md.TimestampEnd != "" {
		fmt.Fprintf(sb, "| Finished | %s |\n", md.TimestampEnd)
	}

	fmt.Fprintf(sb, "| Trials | %d |\n", md.NumTrials)
	fmt.Fprintf(sb, "| Warmup Runs | %d |\n", md.WarmupRuns)

	if md.Platform != "" {
		fmt.Fprintf(sb, "| Platform | %s |\n", md.Platform)
	}

	fmt.Fprintf(sb, "| Workloads | %d |\n", m.Benchmarks.Len())
	fmt.Fprintf(sb, "| Runtimes | %d |\n", m.Runtimes.Len())

	sb.WriteByte('\n')
}

func writeRuntimes(sb *strings.Builder, m *matrix.ResultMatrix) {
	if m.Runtimes.Len() == 0 {
		return
	}

	sb.WriteString("## Runtimes\n\n")
	sb.WriteString("| Runtime | Version | Executable | Startup |\n")
	sb.WriteString("|---|---|---|---|\n")

	for name, info := range m.Runtimes.All() {
		startup := "-"
		if info.Overhead != nil && info.Overhead.StartupTime.Average > 0 {
			startup = fmt.Sprintf("%.4fs", info.Overhead.StartupTime.Average)
		}

		fmt.Fprintf(sb, "| %s | %s | `%s` | %s |\n",
			name, info.Version, info.Executable, startup)
	}

	sb.WriteByte('\n')
}

func writeRankings(sb *strings.Builder, m *matrix.ResultMatrix, rankings []ranking.WorkloadRanking) {
	sb.WriteString("## Results\n\n")

	for _, wr := range rankings {
		fmt.Fprintf(sb, "### %s\n\n", wr.Workload)

		if wr.NoValidResults {
			sb.WriteString("No valid results\n\n")

			continue
		}

		sb.WriteString("| Rank | Runtime | Average | Std Dev | Speedup | Peak RSS |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")

		for i, e := range wr.Entries {
			rss := "-"

			if cell, ok := m.Cell(wr.Workload, e.Runtime); ok && cell.Usage != nil && cell.Usage.PeakRSSBytes > 0 {
				rss = units.BytesSize(float64(cell.Usage.PeakRSSBytes))
			}

			fmt.Fprintf(sb, "| %d | %s | %.4fs | %.4fs | %s | %s |\n",
				i+1, e.Runtime, e.Average, e.StdDev, formatSpeedup(e), rss)
		}

		sb.WriteByte('\n')
	}
}

func writeSystem(sb *strings.Builder, sys *sysinfo.SystemInfo) {
	if sys == nil {
		return
	}

	sb.WriteString("## System\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")

	if sys.Hostname != "" {
		fmt.Fprintf(sb, "| Hostname | %s |\n", sys.Hostname)
	}

	if sys.CPUModel != "" {
		fmt.Fprintf(sb, "| CPU | %s |\n", sys.CPUModel)
	}

	if sys.CPUCores > 0 {
		fmt.Fprintf(sb, "| Cores | %d (%d threads) |\n", sys.CPUCores, sys.CPUThreads)
	}

	if sys.MemoryTotalGB > 0 {
		fmt.Fprintf(sb, "| Memory | %.1f GB |\n", sys.MemoryTotalGB)
	}

	if sys.Platform != "" {
		platform := sys.Platform
		if sys.PlatformVersion != "" {
			platform += " " + sys.PlatformVersion
		}

		fmt.Fprintf(sb, "| Platform | %s |\n", platform)
	}

	if sys.KernelVersion != "" {
		fmt.Fprintf(sb, "| Kernel | %s |\n", sys.KernelVersion)
	}

	sb.WriteByte('\n')
}

func writeFailures(sb *strings.Builder, failures []failureRow, maxChars int) {
	if len(failures) == 0 {
		return
	}

	sb.WriteString("## Failures\n\n")
	sb.WriteString("| Workload | Runtime | Result |\n")
	sb.WriteString("|---|---|---|\n")

	const reserveChars = 100

	for i, f := range failures {
		row := fmt.Sprintf("| %s | %s | %s |\n",
			f.Workload, f.Failure.Runtime,
			strings.ReplaceAll(formatFailure(f.Failure), "|", `\|`))

		if maxChars > 0 && sb.Len()+len(row)+reserveChars > maxChars {
			fmt.Fprintf(sb,
				"\n*%d more failure(s) not shown (output truncated at %d chars)*\n",
				len(failures)-i, maxChars)

			return
		}

		sb.WriteString(row)
	}
}

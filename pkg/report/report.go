// Package report renders result matrices for humans and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/ranking"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
)

// Format selects the report rendering.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
func Formats() []string {
	return []string{string(FormatTable), string(FormatMarkdown), string(FormatJSON)}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (want one of %s)",
			s, strings.Join(Formats(), ", "))
	}
}

// Write renders m to w.
func Write(w io.Writer, m *matrix.ResultMatrix, format Format) error {
	switch format {
	case FormatTable, "":
		return writeTable(w, m)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(m, "", 0))

		return err
	case FormatJSON:
		return writeJSON(w, m)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// jsonReport is the machine-readable summary.
type jsonReport struct {
	Metadata matrix.Metadata           `json:"metadata"`
	Rankings []ranking.WorkloadRanking `json:"rankings"`
}

func writeJSON(w io.Writer, m *matrix.ResultMatrix) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jsonReport{Metadata: m.Metadata, Rankings: ranking.Rank(m)})
}

func writeTable(w io.Writer, m *matrix.ResultMatrix) error {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "BENCHMARK SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, wr := range ranking.Rank(m) {
		fmt.Fprintf(w, "\n%s:\n", wr.Workload)

		if wr.NoValidResults {
			fmt.Fprintln(w, "  No valid results")
		} else {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

			for i, e := range wr.Entries {
				fmt.Fprintf(tw, "  %d. %s\t%s\t(%s)\t%s\n",
					i+1, e.Runtime,
					formatAverage(e.Average, e.StdDev),
					formatSpeedup(e),
					peakRSS(m, wr.Workload, e.Runtime))
			}

			if err := tw.Flush(); err != nil {
				return fmt.Errorf("flushing table: %w", err)
			}
		}

		for _, f := range wr.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Runtime, formatFailure(f))
		}
	}

	return nil
}

func formatAverage(avg, std float64) string {
	return fmt.Sprintf("%.4fs ± %.4fs", avg, std)
}

func formatSpeedup(e ranking.Entry) string {
	if e.Baseline {
		return "baseline"
	}

	return fmt.Sprintf("%.2fx", e.SpeedupFactor)
}

func formatFailure(f ranking.Failure) string {
	s := fmt.Sprintf("FAILED (code %d)", f.ExitCode)
	if f.Excerpt != "" {
		s += " " + strings.Join(strings.Fields(f.Excerpt), " ")
	}

	return s
}

// peakRSS returns the humanized peak resident set size of a cell, or an
// empty string when the platform did not report it.
func peakRSS(m *matrix.ResultMatrix, workload, runtime string) string {
	cell, ok := m.Cell(workload, runtime)
	if !ok {
		return ""
	}

	return formatUsage(cell.Usage)
}

func formatUsage(u *stats.Usage) string {
	if u == nil || u.PeakRSSBytes <= 0 {
		return ""
	}

	return "peak " + units.BytesSize(float64(u.PeakRSSBytes))
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/report"
	"github.com/ethpandaops/runtimeoor/pkg/results"
	"github.com/ethpandaops/runtimeoor/pkg/store"
	"github.com/spf13/cobra"
)

var (
	reportFormat   string
	reportRunID    string
	reportMaxChars int
)

var reportCmd = &cobra.Command{
	Use:   "report [result-file]",
	Short: "Print the summary of a saved run",
	Long: `Render the ranked summary of a result file, or of a run stored in the
history database when --run-id is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFormat, "format", string(report.FormatTable),
		"Output format ("+strings.Join(report.Formats(), ", ")+")")
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "",
		"Load the run from the history database instead of a file")
	reportCmd.Flags().IntVar(&reportMaxChars, "max-chars", 0,
		"Cap markdown output at this many characters (0 = unlimited)")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	var (
		m     *matrix.ResultMatrix
		title string
	)

	switch {
	case len(args) == 1 && reportRunID == "":
		m, err = results.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading results: %w", err)
		}
	case len(args) == 0 && reportRunID != "":
		m, err = loadStoredRun(cmd, reportRunID)
		if err != nil {
			return err
		}

		title = reportRunID
	default:
		return errors.New("pass either a result file or --run-id")
	}

	if format == report.FormatMarkdown {
		_, err := fmt.Fprint(os.Stdout, report.Markdown(m, title, reportMaxChars))

		return err
	}

	return report.Write(os.Stdout, m, format)
}

func loadStoredRun(cmd *cobra.Command, runID string) (*matrix.ResultMatrix, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	ctx := cmd.Context()
	st := store.NewStore(log, &cfg.Database)

	if err := st.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting store: %w", err)
	}

	defer func() { _ = st.Stop() }()

	m, err := st.GetMatrix(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}

	return m, nil
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/spf13/cobra"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List detected runtimes",
	Long:  `Probe every supported runtime and print its executable and version.`,
	RunE:  runRuntimesList,
}

func init() {
	rootCmd.AddCommand(runtimesCmd)
}

func runRuntimesList(cmd *cobra.Command, _ []string) error {
	targets, err := detectTargets(cmd.Context(), procexec.NewExecutor(log), nil)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRUNTIME\tVERSION\tEXECUTABLE")

	for _, t := range targets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, t.DisplayName, t.Version, t.Executable)
	}

	return tw.Flush()
}

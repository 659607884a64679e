// Command sheetnorm normalizes spreadsheet exports from the command line.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sheetnorm",
		Short:         "Normalize and consolidate spreadsheet exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newProcessCommand())
	return cmd
}

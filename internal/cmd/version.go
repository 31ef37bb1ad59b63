package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// toolVersion is stamped at build time via -ldflags.
var toolVersion = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the versync version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "versync %s (%s)\n", toolVersion, runtime.Version())
		},
	}
}

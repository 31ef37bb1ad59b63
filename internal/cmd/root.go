// Package cmd wires the versync command line.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type statusFunc func(format string, args ...interface{})

type options struct {
	root    string
	quiet   bool
	verbose bool

	status statusFunc
}

func (o *options) createStatus(w io.Writer) {
	if o.quiet {
		o.status = func(string, ...interface{}) {}

		return
	}

	o.status = func(format string, args ...interface{}) {
		fmt.Fprintf(w, format, args...)
	}
}

// Execute runs the CLI with the given arguments and returns the process
// exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)

		return 1
	}

	return 0
}

const rootLong = `versync keeps a Cargo workspace's version strings in step: the root
manifest, every member crate manifest, and the toml fences embedded in the
documentation all receive the same version in one run.

Configuration may be placed in a versync.toml at the workspace root or
supplied through VERSYNC_* environment variables.`

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "versync",
		Short:         "Synchronise workspace, crate, and documentation versions",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.createStatus(cmd.ErrOrStderr())
			initConfig(opts.root)
			setupLogger(cmd.ErrOrStderr(), opts.verbose)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.root, "root", "C", ".", "workspace root directory")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress status output")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newBumpCmd(opts),
		newDocsCmd(opts),
		newPreflightCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leynos/versync/internal/execx"
	"github.com/leynos/versync/internal/preflight"
)

func newPreflightCmd(opts *options) *cobra.Command {
	var print bool

	cmd := &cobra.Command{
		Use:   "preflight <cargo-subcommand>",
		Short: "Run a workspace-wide cargo pre-flight with configured exclusions",
		Long: `Preflight runs "cargo <subcommand> --workspace --all-targets" from the
workspace root. For test runs, crates listed under [preflight] test_exclude
in versync.toml are skipped with --exclude; other subcommands always cover
the whole workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := preflight.NewCache(viper.GetInt(preflightCacheSizeKey))
			excludes := preflight.Excludes(cache, opts.root)
			command := cargoCommand(preflight.Args(args[0], excludes))

			if print {
				fmt.Fprintln(cmd.OutOrStdout(), command)

				return nil
			}

			opts.status("--- %s ---\n", command)

			code, err := execx.Run(cmd.Context(), command, opts.root, nil, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if code != 0 {
				return fmt.Errorf("cargo %s exited with %d", args[0], code)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&print, "print", false, "print the composed command without running it")

	return cmd
}

func cargoCommand(args []string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, "cargo")

	for _, arg := range args {
		words = append(words, execx.Quote(arg))
	}

	return strings.Join(words, " ")
}

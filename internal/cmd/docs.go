package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leynos/versync/internal/mdfence"
)

func newDocsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect documentation fences",
	}

	cmd.AddCommand(newDocsListCmd(opts))

	return cmd
}

func newDocsListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [file...]",
		Short: "List fenced code blocks in documentation files",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args

			if len(files) == 0 {
				fsys := os.DirFS(opts.root)

				rels, err := docFiles(fsys, viper.GetStringSlice(docsPatternsKey))
				if err != nil {
					return err
				}

				for _, rel := range rels {
					files = append(files, filepath.Join(opts.root, filepath.FromSlash(rel)))
				}
			}

			tbl := table.New("Path", "Info", "Lines", "File", "Skip").WithWriter(cmd.OutOrStdout())

			for _, file := range files {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}

				fences, err := mdfence.Fences(src)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}

				for _, f := range fences {
					skip := ""
					if f.Meta.Has("skip") {
						skip = "yes"
					}

					tbl.AddRow(file, f.Info, fmt.Sprintf("L%d-%d", f.StartLine, f.EndLine), f.Meta.Get("file"), skip)
				}
			}

			tbl.Print()

			return nil
		},
	}
}

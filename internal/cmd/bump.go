package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leynos/versync/internal/execx"
	"github.com/leynos/versync/internal/manifest"
	"github.com/leynos/versync/internal/mdfence"
	"github.com/leynos/versync/internal/workspace"
)

type bumpFlags struct {
	dryRun     bool
	dependency string
	docs       []string
	postBump   string
}

type bumpResult struct {
	path    string
	kind    string
	changed bool
	err     error
}

func newBumpCmd(opts *options) *cobra.Command {
	var flags bumpFlags

	cmd := &cobra.Command{
		Use:     "bump <version>",
		Aliases: []string{"b"},
		Short:   "Set the workspace, member, and documentation versions",
		Long: `Bump sets the workspace version, each member crate's version, and the
version of the published crate referenced inside toml fences in the
documentation. Manifests keep their formatting: only the version value
itself is rewritten. Files are replaced atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBump(cmd, opts, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "print diffs instead of writing files")
	cmd.Flags().StringVarP(&flags.dependency, "dependency", "d", "", "dependency name to bump inside documentation fences (default: the root package name)")
	cmd.Flags().StringSliceVar(&flags.docs, "docs", nil, "documentation file patterns (default: README.md, docs/**/*.md)")
	cmd.Flags().StringVar(&flags.postBump, "post-bump", "", "shell command to run after a successful bump")

	return cmd
}

func runBump(cmd *cobra.Command, opts *options, version string, flags bumpFlags) error {
	ws, err := workspace.Load(opts.root)
	if err != nil {
		return err
	}

	oldVersion, _ := ws.Manifest.PackageVersion()
	fsys := os.DirFS(opts.root)

	var results []bumpResult

	results = append(results, bumpRoot(cmd, opts, ws, version, flags))

	memberResults, memberNames := bumpMembers(cmd, opts, ws, fsys, version, flags)
	results = append(results, memberResults...)

	docResults := bumpDocs(cmd, opts, fsys, version, flags, resolveDependency(flags.dependency, ws, memberNames))
	results = append(results, docResults...)

	if !opts.quiet {
		printSummary(cmd.OutOrStdout(), results, oldVersion, version)
	}

	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d file(s) failed to update", failures)
	}

	if flags.postBump != "" && !flags.dryRun {
		return runPostBump(cmd, opts, flags.postBump, oldVersion, version)
	}

	return nil
}

func bumpRoot(cmd *cobra.Command, opts *options, ws *workspace.Workspace, version string, flags bumpFlags) bumpResult {
	res := bumpResult{path: ws.ManifestPath(), kind: "workspace"}

	before := ws.Manifest.Bytes()
	res.changed = ws.Manifest.SetPackageVersion(version)

	if res.changed {
		res.err = commit(cmd, flags.dryRun, res.path, before, ws.Manifest.Bytes())
	}

	opts.status("%s: %s\n", res.path, statusWord(res))

	return res
}

// bumpMembers updates every member manifest. Failures are collected and
// reported; the remaining members are still attempted.
func bumpMembers(cmd *cobra.Command, opts *options, ws *workspace.Workspace, fsys fs.FS, version string, flags bumpFlags) ([]bumpResult, []string) {
	rels, err := ws.MemberManifests(fsys)
	if err != nil {
		return []bumpResult{{path: ws.Root, kind: "member", err: err}}, nil
	}

	var (
		results []bumpResult
		names   []string
	)

	for _, rel := range rels {
		full := filepath.Join(opts.root, filepath.FromSlash(rel))
		res := bumpResult{path: full, kind: "member"}

		if doc, err := updateManifest(cmd, full, version, flags.dryRun); err != nil {
			res.err = err
		} else {
			res.changed = doc.changed

			if name, ok := doc.doc.PackageName(); ok {
				names = append(names, name)
			}
		}

		opts.status("%s: %s\n", res.path, statusWord(res))
		results = append(results, res)
	}

	return results, names
}

type manifestUpdate struct {
	doc     *manifest.Document
	changed bool
}

func updateManifest(cmd *cobra.Command, path, version string, dryRun bool) (*manifestUpdate, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := manifest.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	up := &manifestUpdate{doc: doc, changed: doc.SetPackageVersion(version)}

	if up.changed {
		if err := commit(cmd, dryRun, path, src, doc.Bytes()); err != nil {
			return nil, err
		}
	}

	return up, nil
}

func bumpDocs(cmd *cobra.Command, opts *options, fsys fs.FS, version string, flags bumpFlags, dependency string) []bumpResult {
	if dependency == "" {
		slog.Warn("no dependency name resolved; skipping documentation fences")

		return nil
	}

	patterns := flags.docs
	if len(patterns) == 0 {
		patterns = viper.GetStringSlice(docsPatternsKey)
	}

	files, err := docFiles(fsys, patterns)
	if err != nil {
		return []bumpResult{{path: opts.root, kind: "docs", err: err}}
	}

	lang := viper.GetString(docsLanguageKey)

	var results []bumpResult

	for _, rel := range files {
		full := filepath.Join(opts.root, filepath.FromSlash(rel))
		res := bumpResult{path: full, kind: "docs"}

		src, err := os.ReadFile(full)
		if err != nil {
			res.err = err
			results = append(results, res)

			continue
		}

		out, changed, err := mdfence.Rewrite(src, lang, fenceTransform(dependency, version))
		if err != nil {
			res.err = fmt.Errorf("%s: %w", full, err)
		} else if changed {
			res.changed = true
			res.err = commit(cmd, flags.dryRun, full, src, out)
		}

		opts.status("%s: %s\n", res.path, statusWord(res))
		results = append(results, res)
	}

	return results
}

// fenceTransform updates the named dependency inside a fence body parsed as
// a manifest. Bodies that are not valid TOML, or that do not reference the
// dependency, pass through untouched; documentation legitimately contains
// illustrative snippets.
func fenceTransform(dependency, version string) mdfence.Transform {
	return func(body []byte) ([]byte, error) {
		doc, err := manifest.Parse(body)
		if err != nil {
			slog.Debug("leaving unparseable fence unchanged", "error", err)

			return body, nil
		}

		if !doc.SetDependencyVersion(dependency, version) {
			return body, nil
		}

		return doc.Bytes(), nil
	}
}

// resolveDependency picks the dependency name bumped inside documentation
// fences: the flag wins, then configuration, then the root package name,
// then the first member crate's name.
func resolveDependency(flagValue string, ws *workspace.Workspace, memberNames []string) string {
	if flagValue != "" {
		return flagValue
	}

	if configured := viper.GetString(docsDependencyKey); configured != "" {
		return configured
	}

	if name, ok := ws.Manifest.PackageName(); ok {
		return name
	}

	if len(memberNames) > 0 {
		return memberNames[0]
	}

	return ""
}

func docFiles(fsys fs.FS, patterns []string) ([]string, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("docs pattern %q: %w", p, err)
		}

		globs = append(globs, g)
	}

	var files []string

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		for _, g := range globs {
			if g.Match(p) {
				files = append(files, p)

				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}

// commit either replaces the file atomically or, on a dry run, prints a
// unified diff of what would change.
func commit(cmd *cobra.Command, dryRun bool, path string, before, after []byte) error {
	if !dryRun {
		return workspace.ReplaceFile(path, after)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), diff)

	return nil
}

func runPostBump(cmd *cobra.Command, opts *options, hook, oldVersion, newVersion string) error {
	env := []string{
		"VERSYNC_OLD_VERSION=" + oldVersion,
		"VERSYNC_NEW_VERSION=" + newVersion,
	}

	code, err := execx.Run(cmd.Context(), hook, opts.root, env, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("post-bump: %w", err)
	}

	if code != 0 {
		return fmt.Errorf("post-bump exited with %d", code)
	}

	return nil
}

func statusWord(r bumpResult) string {
	switch {
	case r.err != nil:
		return "failed: " + r.err.Error()
	case r.changed:
		return "updated"
	default:
		return "unchanged"
	}
}

func printSummary(w io.Writer, results []bumpResult, oldVersion, newVersion string) {
	fmt.Fprintf(w, "version: %s -> %s\n", orUnknown(oldVersion), newVersion)

	tbl := table.New("Path", "Kind", "Status").WithWriter(w)

	for _, r := range results {
		tbl.AddRow(r.path, r.kind, statusWord(r))
	}

	tbl.Print()
}

func orUnknown(s string) string {
	if s == "" {
		return "(none)"
	}

	return s
}

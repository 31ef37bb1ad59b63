// Package preflight resolves which crates a workspace's pre-flight cargo
// runs should exclude. The exclusion list lives in an optional [preflight]
// section of the workspace's versync.toml; a missing or invalid file means
// no exclusions, never an error, because the publish tooling reports its own
// structured error for a broken configuration.
package preflight

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ConfigName is the workspace configuration file consulted for exclusions.
const ConfigName = "versync.toml"

// Excludes returns the crate names that pre-flight test runs under root
// should skip, consulting cache when one is supplied. The key is the
// resolved root path, so differently-spelled paths to the same workspace
// share an entry.
func Excludes(cache *Cache, root string) []string {
	key := resolveRoot(root)

	if cache != nil {
		if excludes, ok := cache.get(key); ok {
			return excludes
		}
	}

	excludes := loadExcludes(key)

	if cache != nil {
		cache.put(key, excludes)
	}

	return excludes
}

func resolveRoot(root string) string {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return root
}

func loadExcludes(root string) []string {
	src, err := os.ReadFile(filepath.Join(root, ConfigName))
	if err != nil {
		return nil
	}

	var cfg struct {
		Preflight struct {
			TestExclude interface{} `toml:"test_exclude"`
		} `toml:"preflight"`
	}

	if err := toml.Unmarshal(src, &cfg); err != nil {
		slog.Debug("ignoring invalid preflight config", "root", root, "error", err)

		return nil
	}

	return normalise(cfg.Preflight.TestExclude)
}

// normalise accepts either a single string or an array of strings, drops
// blank and non-string entries, and trims the rest.
func normalise(raw interface{}) []string {
	var items []interface{}

	switch v := raw.(type) {
	case string:
		items = []interface{}{v}
	case []interface{}:
		items = v
	default:
		return nil
	}

	var excludes []string

	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}

		if s = strings.TrimSpace(s); s != "" {
			excludes = append(excludes, s)
		}
	}

	return excludes
}

// Args composes the cargo argument list for a pre-flight subcommand.
// Exclusions apply to test runs only; other subcommands get the plain
// workspace-wide invocation.
func Args(subcommand string, excludes []string) []string {
	args := []string{subcommand, "--workspace", "--all-targets"}

	if subcommand != "test" {
		return args
	}

	for _, crate := range excludes {
		args = append(args, "--exclude", crate)
	}

	return args
}

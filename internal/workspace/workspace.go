// Package workspace loads a Cargo workspace's root manifest, expands its
// member patterns, and replaces files atomically.
package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/leynos/versync/internal/manifest"
)

// ManifestName is the file name of a crate or workspace manifest.
const ManifestName = "Cargo.toml"

// Workspace is a loaded root manifest plus the member glob patterns it
// declares.
type Workspace struct {
	Root     string
	Manifest *manifest.Document

	patterns []string
}

// Load reads and parses the root manifest under dir.
func Load(dir string) (*Workspace, error) {
	p := filepath.Join(dir, ManifestName)

	src, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}

	doc, err := manifest.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	var meta struct {
		Workspace struct {
			Members []string `toml:"members"`
		} `toml:"workspace"`
	}

	if err := toml.Unmarshal(src, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	return &Workspace{Root: dir, Manifest: doc, patterns: meta.Workspace.Members}, nil
}

// ManifestPath returns the path of the root manifest.
func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.Root, ManifestName)
}

// MemberManifests expands the workspace member patterns over fsys and
// returns the manifest paths of every member, relative to the fsys root and
// in pattern order. Patterns that match nothing, and matches without a
// manifest, are logged and skipped rather than failing the whole run.
func (w *Workspace) MemberManifests(fsys fs.FS) ([]string, error) {
	var manifests []string

	seen := make(map[string]bool)

	for _, pattern := range w.patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("member pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			slog.Warn("no members matched pattern", "pattern", pattern)

			continue
		}

		for _, m := range matches {
			mp := m
			if info, err := fs.Stat(fsys, m); err == nil && info.IsDir() {
				mp = path.Join(m, ManifestName)
			}

			if path.Base(mp) != ManifestName {
				mp = path.Join(m, ManifestName)
			}

			if _, err := fs.Stat(fsys, mp); err != nil {
				slog.Warn("skipping member without manifest", "path", mp)

				continue
			}

			if !seen[mp] {
				seen[mp] = true
				manifests = append(manifests, mp)
			}
		}
	}

	return manifests, nil
}

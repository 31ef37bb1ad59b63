// Package manifest performs formatting-preserving edits on Cargo.toml
// documents. A Document keeps the original serialization and rewrites only
// the byte range of the value tokens it targets, so quoting, comments,
// whitespace, and key order all survive a round trip.
package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// depTables are the dependency tables inspected by SetDependencyVersion,
// in fixed order.
var depTables = []string{"dependencies", "dev-dependencies", "build-dependencies"}

// Document is a parsed manifest. The zero value is not usable; obtain one
// from [Parse].
type Document struct {
	src []byte
}

// Parse validates src as TOML and returns a Document over a copy of it.
func Parse(src []byte) (*Document, error) {
	if err := scan(src, func(leaf) {}); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &Document{src: append([]byte(nil), src...)}, nil
}

// Bytes returns the current serialization of the document. With no edits
// applied it is byte-identical to the input given to [Parse].
func (d *Document) Bytes() []byte {
	return append([]byte(nil), d.src...)
}

func (d *Document) String() string {
	return string(d.src)
}

// SetPackageVersion sets workspace.package.version when the document has a
// workspace package table, else package.version. It reports whether the
// serialization changed. A document with neither field is left untouched;
// that is not an error (virtual workspace manifests have no version).
func (d *Document) SetPackageVersion(version string) bool {
	target := d.versionLeaf()
	if target == nil {
		return false
	}

	return d.apply([]edit{newEdit(d.src, *target, version, false)})
}

// PackageVersion returns the document's current package version, preferring
// the workspace package table, and whether one was found.
func (d *Document) PackageVersion() (string, bool) {
	target := d.versionLeaf()
	if target == nil {
		return "", false
	}

	return target.text, true
}

func (d *Document) versionLeaf() *leaf {
	var pkg, wsPkg *leaf

	err := scan(d.src, func(l leaf) {
		switch {
		case l.kind != unstable.String:
		case l.pathIs("workspace", "package", "version"):
			wsPkg = ref(l)
		case l.pathIs("package", "version"):
			pkg = ref(l)
		}
	})
	if err != nil {
		return nil
	}

	if wsPkg != nil {
		return wsPkg
	}

	return pkg
}

// SetDependencyVersion updates the version of the named dependency in each
// of the dependencies, dev-dependencies, and build-dependencies tables where
// it appears. The update preserves a leading ^ or ~ constraint prefix and
// the original quote style, touches only the version value token, and never
// injects a version into a workspace-inherited entry. Missing tables and
// missing entries are silent no-ops. It reports whether the serialization
// changed.
func (d *Document) SetDependencyVersion(name, version string) bool {
	type entry struct {
		bare      *leaf // table = "1.2.3" form
		nested    *leaf // { version = "1.2.3" } or [dependencies.name] form
		workspace bool  // workspace = true marker
	}

	entries := make(map[string]*entry, len(depTables))
	at := func(table string) *entry {
		e, ok := entries[table]
		if !ok {
			e = &entry{}
			entries[table] = e
		}

		return e
	}

	err := scan(d.src, func(l leaf) {
		for _, table := range depTables {
			switch {
			case l.pathIs(table, name) && l.kind == unstable.String:
				at(table).bare = ref(l)
			case l.pathIs(table, name, "version") && l.kind == unstable.String:
				at(table).nested = ref(l)
			case l.pathIs(table, name, "workspace") && l.kind == unstable.Bool && l.text == "true":
				at(table).workspace = true
			}
		}
	})
	if err != nil {
		return false
	}

	var edits []edit

	for _, table := range depTables {
		e, ok := entries[table]
		if !ok {
			continue
		}

		switch {
		case e.bare != nil:
			edits = append(edits, newEdit(d.src, *e.bare, version, true))
		case e.workspace:
			// Version is inherited from the workspace; leave the entry alone.
		case e.nested != nil:
			edits = append(edits, newEdit(d.src, *e.nested, version, true))
		}
	}

	return d.apply(edits)
}

// PackageName returns the name declared in the package table, if any.
func (d *Document) PackageName() (string, bool) {
	var meta struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}

	if err := toml.Unmarshal(d.src, &meta); err != nil || meta.Package.Name == "" {
		return "", false
	}

	return meta.Package.Name, true
}

func ref(l leaf) *leaf {
	c := l
	return &c
}

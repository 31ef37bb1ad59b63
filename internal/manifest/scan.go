package manifest

import (
	"sort"

	"github.com/pelletier/go-toml/v2/unstable"
)

// leaf is a scalar value found during a scan: its dotted path from the
// document root (table headers plus key parts, inline tables flattened) and
// the byte range of its value token in the source. The range covers the
// whole token, quotes included.
type leaf struct {
	path []string
	kind unstable.Kind
	raw  unstable.Range
	text string
}

func (l leaf) pathIs(parts ...string) bool {
	if len(l.path) != len(parts) {
		return false
	}

	for i, p := range parts {
		if l.path[i] != p {
			return false
		}
	}

	return true
}

// scan walks every expression in src and calls visit for each scalar leaf.
// AST nodes are only valid until the next expression, so leaves copy out
// everything they need.
func scan(src []byte, visit func(leaf)) error {
	p := &unstable.Parser{}
	p.Reset(src)

	var table []string

	for p.NextExpression() {
		e := p.Expression()

		switch e.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyPath(e.Key())
		case unstable.KeyValue:
			path := append(append([]string(nil), table...), keyPath(e.Key())...)
			visitValue(path, e.Value(), visit)
		}
	}

	return p.Error()
}

func visitValue(path []string, node *unstable.Node, visit func(leaf)) {
	if node == nil {
		return
	}

	switch node.Kind {
	case unstable.InlineTable:
		it := node.Children()
		for it.Next() {
			kv := it.Node()
			if kv.Kind != unstable.KeyValue {
				continue
			}

			sub := append(append([]string(nil), path...), keyPath(kv.Key())...)
			visitValue(sub, kv.Value(), visit)
		}
	case unstable.Array:
		// Version targets never live inside arrays.
	default:
		visit(leaf{
			path: path,
			kind: node.Kind,
			raw:  node.Raw,
			text: string(node.Data),
		})
	}
}

func keyPath(it unstable.Iterator) []string {
	var parts []string

	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}

	return parts
}

// edit replaces one byte range of the source with new text.
type edit struct {
	offset  int
	length  int
	replace []byte
}

// newEdit builds the replacement token for a version leaf: the original
// quote delimiter, the preserved ^ or ~ prefix when keepPrefix is set, the
// new version, and the closing delimiter.
func newEdit(src []byte, l leaf, version string, keepPrefix bool) edit {
	offset, length := int(l.raw.Offset), int(l.raw.Length)
	raw := src[offset : offset+length]

	delim := quoteDelim(raw)

	prefix := ""
	if keepPrefix && len(l.text) > 0 && (l.text[0] == '^' || l.text[0] == '~') {
		prefix = string(l.text[0])
	}

	replace := make([]byte, 0, 2*len(delim)+len(prefix)+len(version))
	replace = append(replace, delim...)
	replace = append(replace, prefix...)
	replace = append(replace, version...)
	replace = append(replace, delim...)

	return edit{offset: offset, length: length, replace: replace}
}

func quoteDelim(raw []byte) []byte {
	for _, d := range []string{`"""`, "'''", `"`, "'"} {
		if len(raw) >= len(d) && string(raw[:len(d)]) == d {
			return []byte(d)
		}
	}

	// Unquoted token; should not happen for TOML strings.
	return nil
}

// apply splices the edits into the document, last offset first so earlier
// ranges stay valid, and reports whether any bytes changed.
func (d *Document) apply(edits []edit) bool {
	changed := false

	sort.Slice(edits, func(i, j int) bool { return edits[i].offset > edits[j].offset })

	for _, e := range edits {
		old := d.src[e.offset : e.offset+e.length]
		if string(old) == string(e.replace) {
			continue
		}

		next := make([]byte, 0, len(d.src)-e.length+len(e.replace))
		next = append(next, d.src[:e.offset]...)
		next = append(next, e.replace...)
		next = append(next, d.src[e.offset+e.length:]...)
		d.src = next
		changed = true
	}

	return changed
}

package mdfence

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// Meta holds key-value metadata parsed from the remainder of a fence's info
// string, either as JSON ({"key": "value"}) or as shell-style key=value
// words, optionally wrapped in braces.
type Meta map[string]interface{}

// Get returns the metadata value for the given key as a string.
// It returns an empty string if the key is missing or the Meta is nil.
func (m Meta) Get(name string) string {
	if m == nil {
		return ""
	}

	value, has := m[name]
	if !has {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}

// Has reports whether the key is present, regardless of its value.
func (m Meta) Has(name string) bool {
	_, has := m[name]

	return has
}

var (
	reJSON     = regexp.MustCompile(`^\s*{\s*["}]`)
	reBrackets = regexp.MustCompile(`^\s*{(.*)}$`)
)

// parseInfo splits a fence info string into its language tag (the first
// whitespace-delimited token) and metadata. Metadata that fails to parse is
// dropped rather than reported: an info string's trailing modifiers never
// affect whether the fence matches, only whether it opts out.
func parseInfo(info []byte) (string, Meta) {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return "", nil
	}

	lang := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(info)), lang))

	return lang, parseMeta([]byte(rest))
}

func parseMeta(input []byte) Meta {
	if len(input) == 0 {
		return nil
	}

	if reJSON.Match(input) {
		var meta Meta

		if err := json.Unmarshal(input, &meta); err != nil {
			return nil
		}

		return meta
	}

	if subs := reBrackets.FindSubmatch(input); subs != nil {
		input = subs[1]
	}

	words, err := shlex.Split(string(input))
	if err != nil {
		return nil
	}

	meta := make(Meta)

	for _, word := range words {
		if idx := strings.IndexRune(word, '='); idx >= 0 {
			meta[word[:idx]] = word[idx+1:]
		} else {
			meta[word] = true
		}
	}

	return meta
}

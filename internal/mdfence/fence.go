// Package mdfence locates fenced code blocks in Markdown text and rewrites
// their bodies in place. Rewriting replaces only the lines between the fence
// delimiters: marker runs, info strings, and the delimiters' indentation are
// never touched, and documents with no matching fences round-trip
// byte-for-byte.
package mdfence

import "strings"

// Fence is a located fenced code block. Body holds the block content with
// the fence indentation stripped, including its trailing newline run.
type Fence struct {
	Lang      string
	Info      string
	Meta      Meta
	Indent    string
	Marker    string
	Body      []byte
	StartLine int
	EndLine   int
}

// Transform maps a fence body to its replacement. The body it receives has
// the trailing newline run already detached; the run is reattached to the
// returned text. Returning the input unchanged leaves the fence alone.
type Transform func(body []byte) ([]byte, error)

// Fences returns every fenced code block in source, in document order,
// without modifying it.
func Fences(source []byte) ([]*Fence, error) {
	var fences []*Fence

	err := walkFences(source, func(f *Fence, _ span) error {
		fences = append(fences, f)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fences, nil
}

// matches reports whether the fence's language tag equals lang,
// case-insensitively. Fences without an info string match nothing.
func (f *Fence) matches(lang string) bool {
	return f.Lang != "" && strings.EqualFold(f.Lang, lang)
}

// skipped reports whether the fence's info-string metadata opts it out of
// rewriting with a skip key.
func (f *Fence) skipped() bool {
	return f.Meta.Has("skip")
}

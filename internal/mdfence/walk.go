package mdfence

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// span is a half-open byte range [start, stop) in the source document. For a
// fence it covers the body lines only, indentation included, delimiter lines
// excluded.
type span struct {
	start int
	stop  int
}

type change struct {
	span    span
	replace []byte
}

// Rewrite passes the body of every fence tagged lang (case-insensitive first
// token of the info string) through transform and splices the results back
// into source. Fence delimiter lines are preserved verbatim; the fence's
// indentation is re-applied to every replacement body line, and the body's
// trailing newline run is reattached after the transform. The returned bool
// reports whether anything changed; when it is false the returned text is
// the input, byte-for-byte.
func Rewrite(source []byte, lang string, transform Transform) ([]byte, bool, error) {
	var changes []change

	err := walkFences(source, func(f *Fence, sp span) error {
		if !f.matches(lang) || f.skipped() {
			return nil
		}

		body, run := splitTrailingNewlines(f.Body)

		out, terr := transform(body)
		if terr != nil {
			return terr
		}

		if bytes.Equal(out, body) {
			return nil
		}

		newBody := make([]byte, 0, len(out)+len(run))
		newBody = append(newBody, out...)
		newBody = append(newBody, run...)

		changes = append(changes, change{span: sp, replace: indentLines(newBody, f.Indent)})

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if len(changes) == 0 {
		return source, false, nil
	}

	return splice(source, changes), true, nil
}

func walkFences(source []byte, fn func(*Fence, span) error) error {
	parser := goldmark.DefaultParser()
	reader := text.NewReader(source)
	root := parser.Parse(reader).OwnerDocument()

	return ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering || node.Kind() != ast.KindFencedCodeBlock {
			return ast.WalkContinue, nil
		}

		fcb, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		fence, sp, ok := locate(fcb, source)
		if !ok {
			return ast.WalkContinue, nil
		}

		if err := fn(fence, sp); err != nil {
			return ast.WalkStop, err
		}

		return ast.WalkContinue, nil
	})
}

// locate derives a Fence and its body span from the AST node. The third
// return is false when the fence's opening line cannot be recovered.
func locate(fcb *ast.FencedCodeBlock, source []byte) (*Fence, span, bool) {
	openStart, openEnd, ok := openingLine(fcb, source)
	if !ok {
		return nil, span{}, false
	}

	indent, marker, ok := splitOpening(source[openStart:openEnd])
	if !ok {
		return nil, span{}, false
	}

	fence := &Fence{Indent: indent, Marker: marker}

	if fcb.Info != nil {
		info := fcb.Info.Segment.Value(source)
		fence.Info = string(info)
		fence.Lang, fence.Meta = parseInfo(info)
	}

	sp := bodySpan(fcb, source, openEnd)
	fence.Body = extractBody(fcb, source)
	fence.StartLine = lineAt(source, openStart)
	fence.EndLine = lineAt(source, sp.stop)

	return fence, sp, true
}

// openingLine returns the byte range of the opening fence line, newline
// excluded.
func openingLine(fcb *ast.FencedCodeBlock, source []byte) (int, int, bool) {
	if fcb.Info != nil {
		start := lineStart(source, fcb.Info.Segment.Start)

		return start, lineEnd(source, fcb.Info.Segment.Stop), true
	}

	lines := fcb.Lines()
	if lines.Len() == 0 {
		return 0, 0, false
	}

	// No info string: the opening fence is the line before the first body
	// line.
	bodyStart := lineStart(source, lines.At(0).Start)
	if bodyStart == 0 {
		return 0, 0, false
	}

	start := lineStart(source, bodyStart-1)

	return start, lineEnd(source, start), true
}

// splitOpening separates the opening fence line into its indentation and
// marker run.
func splitOpening(line []byte) (string, string, bool) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}

	if i == len(line) || (line[i] != '`' && line[i] != '~') {
		return "", "", false
	}

	ch := line[i]
	j := i
	for j < len(line) && line[j] == ch {
		j++
	}

	return string(line[:i]), string(line[i:j]), true
}

func bodySpan(fcb *ast.FencedCodeBlock, source []byte, openEnd int) span {
	lines := fcb.Lines()
	if lines.Len() == 0 {
		at := openEnd
		if at < len(source) {
			at++ // past the opening line's newline
		}

		return span{start: at, stop: at}
	}

	return span{
		start: lineStart(source, lines.At(0).Start),
		stop:  lines.At(lines.Len() - 1).Stop,
	}
}

func extractBody(fcb *ast.FencedCodeBlock, source []byte) []byte {
	var buff bytes.Buffer

	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)

		buff.Write(seg.Value(source))
	}

	return buff.Bytes()
}

func lineStart(source []byte, offset int) int {
	return bytes.LastIndexByte(source[:offset], '\n') + 1
}

func lineEnd(source []byte, offset int) int {
	idx := bytes.IndexByte(source[offset:], '\n')
	if idx < 0 {
		return len(source)
	}

	return offset + idx
}

func lineAt(source []byte, offset int) int {
	line := 1

	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}

	return line
}

// splitTrailingNewlines detaches the trailing run of \n or \r\n sequences
// from b.
func splitTrailingNewlines(b []byte) ([]byte, []byte) {
	end := len(b)

	for end > 0 && b[end-1] == '\n' {
		end--
		if end > 0 && b[end-1] == '\r' {
			end--
		}
	}

	return b[:end], b[end:]
}

// indentLines prepends indent to every line of b, the final unterminated
// line included.
func indentLines(b []byte, indent string) []byte {
	if indent == "" || len(b) == 0 {
		return b
	}

	var buff bytes.Buffer

	for len(b) > 0 {
		buff.WriteString(indent)

		idx := bytes.IndexByte(b, '\n')
		if idx < 0 {
			buff.Write(b)

			break
		}

		buff.Write(b[:idx+1])
		b = b[idx+1:]
	}

	return buff.Bytes()
}

// splice replaces each change's span with its text. Changes arrive in
// document order with non-overlapping spans.
func splice(source []byte, changes []change) []byte {
	size := len(source)
	for _, c := range changes {
		size += len(c.replace) - (c.span.stop - c.span.start)
	}

	result := make([]byte, 0, size)
	idx := 0

	for _, c := range changes {
		result = append(result, source[idx:c.span.start]...)
		result = append(result, c.replace...)
		idx = c.span.stop
	}

	return append(result, source[idx:]...)
}

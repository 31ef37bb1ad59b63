package mdfence

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replaceTransform(old, new string) Transform {
	return func(body []byte) ([]byte, error) {
		return bytes.ReplaceAll(body, []byte(old), []byte(new)), nil
	}
}

func TestRewrite_UpdatesMatchingFence(t *testing.T) {
	src := "pre\n```toml\n[dependencies]\northo_config = \"0\"\n```\npost\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "pre\n```toml\n[dependencies]\northo_config = \"1\"\n```\npost\n", string(out))
}

func TestRewrite_NonMatchingLanguageUntouched(t *testing.T) {
	src := "pre\n```bash\necho hi\n```\npost\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform("hi", "bye"))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, src, string(out))
}

func TestRewrite_LanguageMatchIsCaseInsensitive(t *testing.T) {
	src := "```TOML\nfoo = \"0\"\n```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "```TOML\nfoo = \"1\"\n```\n", string(out))
}

func TestRewrite_PreservesIndentationUnderListItem(t *testing.T) {
	src := "1. item\n\n    ```toml\n    [dependencies]\n    foo = \"0\"\n    ```\n"
	want := "1. item\n\n    ```toml\n    [dependencies]\n    foo = \"1\"\n    ```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_PreservesIndentationUnderBulletItem(t *testing.T) {
	src := "- item\n\n  ```toml\n  [dependencies]\n  foo = \"0\"\n  ```\n"
	want := "- item\n\n  ```toml\n  [dependencies]\n  foo = \"1\"\n  ```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_ReindentsPartiallyIndentedBody(t *testing.T) {
	// The body line carries less indentation than the fence; the rewrite
	// normalises every body line to the fence's indentation.
	src := " ```toml\nfoo = \"0\"\n ```\n"
	want := " ```toml\n foo = \"1\"\n ```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_CRLFDocument(t *testing.T) {
	src := "```toml\r\n[dependencies]\r\nfoo = \"0\"\r\n```\r\n"
	want := "```toml\r\n[dependencies]\r\nfoo = \"1\"\r\n```\r\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_BlankLineInsideIndentedFence(t *testing.T) {
	src := "  ```toml\n  a = \"0\"\n\n  b = \"2\"\n  ```\n"
	want := "  ```toml\n  a = \"1\"\n  \n  b = \"2\"\n  ```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_TransformSeesBodyWithoutTrailingNewlines(t *testing.T) {
	src := "```toml\nfoo = \"0\"\n```\n"

	var seen []byte

	out, changed, err := Rewrite([]byte(src), "toml", func(body []byte) ([]byte, error) {
		seen = append([]byte(nil), body...)

		return bytes.ReplaceAll(body, []byte("0"), []byte("1")), nil
	})
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, `foo = "0"`, string(seen))
	assert.Equal(t, "```toml\nfoo = \"1\"\n```\n", string(out))
}

func TestRewrite_KeepsInteriorBlankLine(t *testing.T) {
	src := "```toml\nfoo = \"0\"\n\nbar = \"2\"\n```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "```toml\nfoo = \"1\"\n\nbar = \"2\"\n```\n", string(out))
}

func TestRewrite_PreservesDelimitersVerbatim(t *testing.T) {
	src := "````toml extra=stuff\nfoo = \"0\"\n````\n~~~toml\nbar = \"0\"\n~~~\n"
	want := "````toml extra=stuff\nfoo = \"1\"\n````\n~~~toml\nbar = \"1\"\n~~~\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_SkipMetadataOptsOut(t *testing.T) {
	src := "```toml {skip}\nfoo = \"0\"\n```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, src, string(out))
}

func TestRewrite_UnchangedTransformLeavesDocumentAlone(t *testing.T) {
	src := "```toml\nfoo = \"0\"\n```"

	out, changed, err := Rewrite([]byte(src), "toml", func(body []byte) ([]byte, error) {
		return body, nil
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, src, string(out))
}

func TestRewrite_MultipleFences(t *testing.T) {
	src := "```toml\na = \"0\"\n```\ntext\n```bash\necho 0\n```\n```toml\nb = \"0\"\n```\n"
	want := "```toml\na = \"1\"\n```\ntext\n```bash\necho 0\n```\n```toml\nb = \"1\"\n```\n"

	out, changed, err := Rewrite([]byte(src), "toml", replaceTransform(`"0"`, `"1"`))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewrite_TransformErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	_, _, err := Rewrite([]byte("```toml\nfoo = \"0\"\n```\n"), "toml", func([]byte) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestFences_Enumerates(t *testing.T) {
	src := "# title\n\n```toml\nfoo = \"0\"\n```\n\n```bash\necho hi\n```\n"

	fences, err := Fences([]byte(src))
	require.NoError(t, err)
	require.Len(t, fences, 2)

	assert.Equal(t, "toml", fences[0].Lang)
	assert.Equal(t, "```", fences[0].Marker)
	assert.Equal(t, "foo = \"0\"\n", string(fences[0].Body))
	assert.Equal(t, 3, fences[0].StartLine)

	assert.Equal(t, "bash", fences[1].Lang)
}

func TestSplitTrailingNewlines(t *testing.T) {
	cases := []struct {
		in, body, run string
	}{
		{"foo", "foo", ""},
		{"foo\n", "foo", "\n"},
		{"foo\r\n", "foo", "\r\n"},
		{"foo\n\n", "foo", "\n\n"},
		{"foo\r\n\r\n", "foo", "\r\n\r\n"},
		{"\n", "", "\n"},
	}

	for _, tc := range cases {
		body, run := splitTrailingNewlines([]byte(tc.in))
		assert.Equal(t, tc.body, string(body), "input %q", tc.in)
		assert.Equal(t, tc.run, string(run), "input %q", tc.in)
	}
}

func TestIndentLines(t *testing.T) {
	assert.Equal(t, "  a\n  b\n", string(indentLines([]byte("a\nb\n"), "  ")))
	assert.Equal(t, "  a\n  b", string(indentLines([]byte("a\nb"), "  ")))
	assert.Equal(t, "a\n", string(indentLines([]byte("a\n"), "")))
}

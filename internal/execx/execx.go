// Package execx runs shell command lines through an in-process POSIX shell
// interpreter, so hooks behave the same on every platform.
package execx

import (
	"context"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Run executes command in dir with extraEnv appended to the current
// environment. It returns the command's exit status; a non-zero status is
// not an error.
func Run(ctx context.Context, command, dir string, extraEnv []string, stdout, stderr io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return -1, err
	}

	env := append(os.Environ(), extraEnv...)

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(os.Stdin, stdout, stderr),
	)
	if err != nil {
		return -1, err
	}

	err = runner.Run(ctx, file)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return int(status), nil
		}

		return -1, err
	}

	return 0, nil
}

// Quote renders a single shell word, quoting it only when needed.
func Quote(word string) string {
	quoted, err := syntax.Quote(word, syntax.LangPOSIX)
	if err != nil {
		return word
	}

	return quoted
}

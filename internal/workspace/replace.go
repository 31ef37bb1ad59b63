package workspace

import (
	"os"
	"path/filepath"
)

const defaultMode = os.FileMode(0o644)

// ReplaceFile writes data to a temporary file in the target's directory and
// renames it over the original, so an interrupted run never leaves a partial
// file behind. The original file's mode is preserved when it exists.
func ReplaceFile(name string, data []byte) error {
	mode := defaultMode
	if info, err := os.Stat(name); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), ".versync-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)

		return err
	}

	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)

		return err
	}

	return nil
}

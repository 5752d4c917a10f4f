package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docweave/internal/origin"
)

func writeOutput(path string, data []byte) error {
	path = filepath.FromSlash(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ErrOutputFailed.WithCause(err).WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ErrOutputFailed.WithCause(err).WithContext("path", path)
	}
	return nil
}

// cleanOutput removes dir unless it is the filesystem root, the working
// directory, or contains the sources of src.
func cleanOutput(dir string, src origin.Origin) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ErrUnsafeClean.WithCause(err).WithContext("output", dir)
	}
	if abs == filepath.Dir(abs) {
		return ErrUnsafeClean.WithContext("output", dir)
	}
	if wd, err := os.Getwd(); err == nil && within(wd, abs) {
		return ErrUnsafeClean.WithContext("output", dir)
	}
	if d, ok := src.(*origin.DirOrigin); ok {
		if root, err := filepath.Abs(d.Root()); err == nil && within(root, abs) {
			return ErrUnsafeClean.WithContext("output", dir).WithContext("source", d.Root())
		}
	}
	if err := os.RemoveAll(abs); err != nil {
		return ErrOutputFailed.WithCause(err).WithContext("path", abs)
	}
	return nil
}

// within reports whether path is dir or one of its descendants.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// stripSuffix drops the query string and fragment of an asset URL.
func stripSuffix(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

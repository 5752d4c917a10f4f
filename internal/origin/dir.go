package origin

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DirOrigin reads documents from a directory tree.
type DirOrigin struct {
	root       string
	fsys       fs.FS
	extensions []string
}

// NewDirOrigin opens root. Without extensions, DefaultExtensions are used.
func NewDirOrigin(root string, extensions ...string) (*DirOrigin, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, ErrOpenFailed.WithCause(err).WithContext("root", root)
	}
	if !info.IsDir() {
		return nil, ErrOpenFailed.WithContext("root", root).WithContext("reason", "not a directory")
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &DirOrigin{root: root, fsys: os.DirFS(root), extensions: extensions}, nil
}

// Root returns the directory the origin reads from.
func (o *DirOrigin) Root() string { return o.root }

// Documents walks the tree, skipping hidden files and directories.
func (o *DirOrigin) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := fs.WalkDir(o.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isDocument(p, o.extensions) {
			return nil
		}
		docs = append(docs, Document{LogicalPath: p, PhysicalPath: o.PhysicalPath(p)})
		return nil
	})
	if err != nil {
		return nil, ErrListFailed.WithCause(err).WithContext("root", o.root)
	}
	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.LogicalPath, b.LogicalPath) })
	return docs, nil
}

// ReadFile reads logicalPath below the root.
func (o *DirOrigin) ReadFile(logicalPath string) ([]byte, error) {
	name := cleanLogical(logicalPath)
	data, err := fs.ReadFile(o.fsys, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound.WithCause(err).WithContext("path", name)
		}
		return nil, ErrReadFailed.WithCause(err).WithContext("path", name)
	}
	return data, nil
}

// PhysicalPath joins logicalPath to the root using OS separators.
func (o *DirOrigin) PhysicalPath(logicalPath string) string {
	return filepath.Join(o.root, filepath.FromSlash(cleanLogical(logicalPath)))
}

func (o *DirOrigin) String() string { return o.root }

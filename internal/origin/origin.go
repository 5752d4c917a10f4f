// Package origin abstracts where source documents are read from: a directory
// on disk or a commit of a git repository.
package origin

import (
	"context"
	"path"
	"strings"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

// DefaultExtensions are the source document extensions picked up by default.
var DefaultExtensions = []string{".md", ".markdown"}

var (
	// ErrNotFound indicates a logical path does not exist on the origin.
	ErrNotFound = errors.NewError(errors.CategoryNotFound, "file not found on origin").Build()

	// ErrOpenFailed indicates the origin itself could not be opened.
	ErrOpenFailed = errors.OriginError("could not open origin").Fatal().Build()

	// ErrListFailed indicates the origin could not be enumerated.
	ErrListFailed = errors.OriginError("could not list origin documents").Build()

	// ErrReadFailed indicates a file could not be read from the origin.
	ErrReadFailed = errors.OriginError("could not read file from origin").Build()
)

// Document locates one source document.
type Document struct {
	// LogicalPath is slash separated and relative to the documentation root.
	LogicalPath string
	// PhysicalPath is where the file actually lives on the origin.
	PhysicalPath string
}

// Origin is a read-only source of documents and the assets they reference.
type Origin interface {
	// Documents lists source documents ordered by logical path.
	Documents(ctx context.Context) ([]Document, error)
	// ReadFile reads any file by its logical path.
	ReadFile(logicalPath string) ([]byte, error)
	// PhysicalPath maps a logical path to its location on the origin.
	PhysicalPath(logicalPath string) string
	String() string
}

func isDocument(name string, extensions []string) bool {
	ext := path.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}

func cleanLogical(logicalPath string) string {
	return strings.TrimPrefix(path.Clean("/"+logicalPath), "/")
}

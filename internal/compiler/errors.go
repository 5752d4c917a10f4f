package compiler

import "git.home.luguber.info/inful/docweave/internal/foundation/errors"

var (
	// ErrOutputFailed indicates a page or asset could not be written.
	ErrOutputFailed = errors.FileSystemError("failed to write output").Build()

	// ErrUnsafeClean indicates the output directory may not be removed, e.g.
	// because it contains the sources.
	ErrUnsafeClean = errors.ValidationError("refusing to clean output directory").Build()

	// ErrPersistFailed indicates the registry could not be saved.
	ErrPersistFailed = errors.RegistryError("failed to persist registry").Build()
)

package registry

import (
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

var (
	// ErrEntryNotFound indicates no persisted entry exists for a logical path.
	ErrEntryNotFound = errors.NewError(errors.CategoryNotFound, "registry entry not found").Build()

	// ErrStoreOpenFailed indicates the registry database could not be opened.
	ErrStoreOpenFailed = errors.RegistryError("could not open registry database").Fatal().Build()

	// ErrSchemaFailed indicates the registry schema could not be created.
	ErrSchemaFailed = errors.RegistryError("failed to initialize registry schema").Fatal().Build()

	// ErrSaveFailed indicates an entry could not be written.
	ErrSaveFailed = errors.RegistryError("failed to save registry entry").Retryable().Build()

	// ErrQueryFailed indicates entries could not be read back.
	ErrQueryFailed = errors.RegistryError("failed to query registry entries").Build()

	// ErrEncodeFailed indicates an entry could not be (de)serialized.
	ErrEncodeFailed = errors.RegistryError("failed to encode registry entry").Build()
)

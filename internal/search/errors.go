package search

import "errors"

var (
	// ErrStoreRequired is returned when an engine is created without a catalog store.
	ErrStoreRequired = errors.New("catalog store required")

	// ErrInvalidSortMethod is returned for an unknown sort method name.
	ErrInvalidSortMethod = errors.New("invalid sort method")

	// ErrInvalidTimeout is returned for a negative search timeout.
	ErrInvalidTimeout = errors.New("search timeout must not be negative")
)

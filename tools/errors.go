package tools

import "errors"

var (
	// ErrUnknownOperation is returned by Dispatcher.Invoke for an unregistered name.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrReadOnly is returned by write operations when no writer is configured.
	ErrReadOnly = errors.New("service is read-only")

	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrCandidateStoreRequired is returned when a candidate store is not provided.
	ErrCandidateStoreRequired = errors.New("candidate store required")
)

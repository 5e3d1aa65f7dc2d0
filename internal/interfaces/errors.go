package interfaces

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict indicates the record exists but is not in a state
	// that permits the requested operation.
	ErrStateConflict = errors.New("state conflict")
)

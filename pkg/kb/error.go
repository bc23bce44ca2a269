package kb

import "errors"

var (
	// ErrValidation is returned for rejected inputs: disallowed file
	// types, empty documents, bad identifiers.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
)

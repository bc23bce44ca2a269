package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the store.
	ErrNotFound = errors.New("document not found")

	// ErrDimensionMismatch is returned when an embedding's dimension does
	// not match the store's collection dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)

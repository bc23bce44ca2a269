// Package vector provides interfaces and implementations for document
// chunk storage and similarity search.
package vector

import (
	"context"
	"time"
)

const (
	// MaxContentLen is the maximum stored chunk content length in runes.
	// Longer content is truncated at insert time.
	MaxContentLen = 4000

	// DefaultTopK is the default number of results for a similarity query.
	DefaultTopK = 5
)

// Chunk is one stored slice of a document with its embedding.
type Chunk struct {
	// ID is a unique identifier for the chunk.
	ID string

	// DocID identifies the document this chunk belongs to.
	DocID string

	// Index is the zero-based position of the chunk within its document.
	Index int

	// Content is the chunk text, truncated to MaxContentLen runes.
	Content string

	// Embedding is the vector representation of the chunk content.
	Embedding []float32
}

// DocumentMeta describes one ingested document.
type DocumentMeta struct {
	// DocID is the document's unique identifier.
	DocID string

	// Name is the original file name.
	Name string

	// Type is the file extension without the dot (e.g., "pdf").
	Type string

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time

	// ChunkCount is the number of stored chunks for the document.
	ChunkCount int
}

// Hit is a similarity search result.
type Hit struct {
	Chunk

	// DocName is the name of the document the chunk came from.
	DocName string

	// Score is the cosine similarity (higher = more similar).
	Score float32
}

// Store handles storage and retrieval of document chunks.
type Store interface {
	// Insert stores all chunks of a document in one call and returns
	// the number of chunks written. Either every chunk is written or
	// none are.
	Insert(ctx context.Context, doc DocumentMeta, chunks []Chunk) (int, error)

	// Query finds the topK most similar chunks to the given embedding.
	// When docID is non-empty the search is restricted to that document.
	Query(ctx context.Context, embedding []float32, topK int, docID string) ([]Hit, error)

	// ListDocuments returns metadata for every stored document.
	ListDocuments(ctx context.Context) ([]DocumentMeta, error)

	// DeleteDocument removes all chunks of a document and returns the
	// number removed. Deleting an unknown docID returns ErrNotFound.
	DeleteDocument(ctx context.Context, docID string) (int, error)

	// DocumentExists reports whether any chunk of the document is stored.
	DocumentExists(ctx context.Context, docID string) (bool, error)

	// GetChunks returns up to limit chunks of a document ordered by Index.
	GetChunks(ctx context.Context, docID string, limit int) ([]Chunk, error)

	// Dimension returns the embedding dimension the store was opened with.
	Dimension() int

	// Close releases any resources held by the store.
	Close() error
}

// ClampContent truncates content to MaxContentLen runes.
func ClampContent(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxContentLen {
		return content
	}
	return string(runes[:MaxContentLen])
}

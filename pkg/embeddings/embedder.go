// Package embeddings provides text embedding capabilities for document
// chunks and chat queries.
package embeddings

import (
	"context"
	"errors"
	"unicode/utf8"
)

const (
	// MaxBatchSize is the largest number of inputs submitted to a provider
	// in a single request. Longer input slices are split into sequential
	// batch calls.
	MaxBatchSize = 25

	// MaxInputRunes is the per-input truncation limit, protecting against
	// provider token/length caps.
	MaxInputRunes = 2000
)

// ErrProvider is returned when an embedding provider call fails. A failed
// batch fails the whole operation: downstream storage assumes every chunk
// has a vector, so partial results are never returned.
var ErrProvider = errors.New("embedding provider request failed")

// Embedder converts text into fixed-length vector embeddings.
// Implementations must be safe for concurrent use and must preserve input
// order in EmbedBatch results.
type Embedder interface {
	// Embed converts a single text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into embeddings, one per input, in input
	// order. Inputs are truncated to MaxInputRunes and submitted in batches
	// of at most MaxBatchSize.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Truncate caps text at MaxInputRunes runes.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxInputRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxInputRunes])
}

// Batches splits texts into batches of at most MaxBatchSize, preserving
// order.
func Batches(texts []string) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}

package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// Unknown texts embed to a vector whose first component is the rune
// count, padded with zeros to Dim.
type MockEmbedder struct {
	// Dim is the embedding dimension. Defaults to 4.
	Dim int

	// Embeddings maps exact texts to fixed embeddings.
	Embeddings map[string][]float32

	// FailOn causes embedding to fail when the input text matches.
	FailOn string

	// Calls records every text passed to Embed or EmbedBatch.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Dim:        4,
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	emb := make([]float32, m.Dim)
	emb[0] = float32(len([]rune(text)))
	return emb, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

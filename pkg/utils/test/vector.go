package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/inkwellhq/satchel/pkg/vector"
)

// MockStore is an in-memory vector.Store for tests. Safe for concurrent
// use, but the exported maps should only be inspected once background
// workers have quiesced.
type MockStore struct {
	mu sync.Mutex

	// Dim is the reported embedding dimension. Defaults to 4.
	Dim int

	// Docs holds one entry per inserted document.
	Docs map[string]vector.DocumentMeta

	// Chunks holds inserted chunks keyed by document ID.
	Chunks map[string][]vector.Chunk

	// Hits is returned verbatim from Query, filtered by docID when set.
	Hits []vector.Hit

	// InsertErr, QueryErr force the respective operations to fail.
	InsertErr error
	QueryErr  error

	// QueryCalls counts Query invocations.
	QueryCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Dim:    4,
		Docs:   make(map[string]vector.DocumentMeta),
		Chunks: make(map[string][]vector.Chunk),
	}
}

// DocCount reports the number of stored documents. Safe to poll while
// workers are still inserting.
func (m *MockStore) DocCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Docs)
}

func (m *MockStore) Insert(_ context.Context, doc vector.DocumentMeta, chunks []vector.Chunk) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	doc.ChunkCount = len(chunks)
	m.Docs[doc.DocID] = doc
	m.Chunks[doc.DocID] = append([]vector.Chunk(nil), chunks...)
	return len(chunks), nil
}

func (m *MockStore) Query(_ context.Context, _ []float32, topK int, docID string) ([]vector.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueryCalls++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var hits []vector.Hit
	for _, hit := range m.Hits {
		if docID == "" || hit.DocID == docID {
			hits = append(hits, hit)
		}
	}
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MockStore) ListDocuments(_ context.Context) ([]vector.DocumentMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := make([]vector.DocumentMeta, 0, len(m.Docs))
	for _, doc := range m.Docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DocID < docs[j].DocID
	})
	return docs, nil
}

func (m *MockStore) DeleteDocument(_ context.Context, docID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunks, ok := m.Chunks[docID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}
	delete(m.Chunks, docID)
	delete(m.Docs, docID)
	return len(chunks), nil
}

func (m *MockStore) DocumentExists(_ context.Context, docID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.Chunks[docID]
	return ok, nil
}

func (m *MockStore) GetChunks(_ context.Context, docID string, limit int) ([]vector.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunks, ok := m.Chunks[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}
	out := append([]vector.Chunk(nil), chunks...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) Dimension() int {
	return m.Dim
}

func (m *MockStore) Close() error {
	return nil
}

var _ vector.Store = (*MockStore)(nil)

// Package kb manages the document knowledge base: ingesting files into
// the vector store and reading them back out.
package kb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/chunker"
	"github.com/inkwellhq/satchel/pkg/embeddings"
	"github.com/inkwellhq/satchel/pkg/extract"
	"github.com/inkwellhq/satchel/pkg/vector"
)

// DefaultPreviewChunks bounds how many chunks a preview returns.
const DefaultPreviewChunks = 50

// Service coordinates extraction, chunking, embedding, and storage.
type Service struct {
	store    vector.Store
	embedder embeddings.Embedder
	splitter *chunker.Splitter
	logger   *zap.Logger
}

// NewService creates a knowledge base service.
func NewService(store vector.Store, embedder embeddings.Embedder, splitter *chunker.Splitter, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
	}
}

// Ingest extracts text from the file at path, splits it, embeds every
// chunk, and stores the document in one insert. The original file name
// decides the document's name and type. If any stage fails, nothing is
// written.
func (s *Service) Ingest(ctx context.Context, path, filename string) (*IngestResult, error) {
	ext := extract.Ext(filename)
	if !extract.Allowed(ext) {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}

	text, err := extract.Text(path)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) || errors.Is(err, extract.ErrEmptyDocument) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("extracting %s: %w", filename, err)
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", ErrValidation, filename)
	}

	vecs, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", filename, err)
	}

	docID := NewDocID(filename)
	doc := vector.DocumentMeta{
		DocID:     docID,
		Name:      filename,
		Type:      ext,
		CreatedAt: time.Now().UTC(),
	}

	chunks := make([]vector.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vector.Chunk{
			ID:        ChunkID(docID, i),
			DocID:     docID,
			Index:     i,
			Content:   piece,
			Embedding: vecs[i],
		}
	}

	n, err := s.store.Insert(ctx, doc, chunks)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", filename, err)
	}

	s.logger.Info("ingested document",
		zap.String("doc_id", docID),
		zap.String("name", filename),
		zap.String("type", ext),
		zap.Int("chunks", n),
	)

	return &IngestResult{
		DocID:      docID,
		Name:       filename,
		Type:       ext,
		ChunkCount: n,
	}, nil
}

// List returns metadata for every stored document.
func (s *Service) List(ctx context.Context) ([]vector.DocumentMeta, error) {
	return s.store.ListDocuments(ctx)
}

// Delete removes a document and all of its chunks.
func (s *Service) Delete(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, fmt.Errorf("%w: document ID is required", ErrValidation)
	}

	n, err := s.store.DeleteDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, vector.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return 0, fmt.Errorf("deleting %s: %w", docID, err)
	}

	s.logger.Info("deleted document",
		zap.String("doc_id", docID),
		zap.Int("chunks", n),
	)

	return n, nil
}

// GetPreview returns a document's metadata and its first chunks in
// reading order. A limit of 0 uses DefaultPreviewChunks.
func (s *Service) GetPreview(ctx context.Context, docID string, limit int) (*Preview, error) {
	if docID == "" {
		return nil, fmt.Errorf("%w: document ID is required", ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultPreviewChunks
	}

	chunks, err := s.store.GetChunks(ctx, docID, limit)
	if err != nil {
		if errors.Is(err, vector.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return nil, fmt.Errorf("loading chunks for %s: %w", docID, err)
	}

	preview := &Preview{
		Meta:   vector.DocumentMeta{DocID: docID},
		Chunks: chunks,
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document metadata: %w", err)
	}
	for _, doc := range docs {
		if doc.DocID == docID {
			preview.Meta = doc
			break
		}
	}

	return preview, nil
}

// Exists reports whether a document is stored.
func (s *Service) Exists(ctx context.Context, docID string) (bool, error) {
	if docID == "" {
		return false, fmt.Errorf("%w: document ID is required", ErrValidation)
	}
	return s.store.DocumentExists(ctx, docID)
}

// ResolveName finds the document ID for an exact document name. When
// several documents share the name, the most recently ingested wins.
func (s *Service) ResolveName(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: document name is required", ErrValidation)
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("loading document metadata: %w", err)
	}

	var (
		found    string
		foundAt  time.Time
		anyMatch bool
	)
	for _, doc := range docs {
		if doc.Name != name {
			continue
		}
		if !anyMatch || doc.CreatedAt.After(foundAt) {
			found = doc.DocID
			foundAt = doc.CreatedAt
			anyMatch = true
		}
	}
	if !anyMatch {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return found, nil
}

// Package chroma provides a Chroma vector store implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/utils"
	"github.com/inkwellhq/satchel/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for document chunks.
	DefaultCollectionName = "satchel"
)

// Driver implements vector.Store using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	dimension      int
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimension is the embedding dimension. If the existing collection
	// was created with a different dimension it is dropped and recreated.
	Dimension int
}

// NewDriver creates a new Chroma vector store.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if c.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		dimension:      c.Dimension,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := d.ensureCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ensuring collection %q: %w", collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.Int("dimension", c.Dimension),
	)

	return d, nil
}

func (d *Driver) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", d.baseURL)
}

// ensureCollection gets the collection, dropping and recreating it when
// its recorded dimension does not match the configured one.
func (d *Driver) ensureCollection(ctx context.Context) (string, error) {
	url := d.collectionsURL() + "/" + d.collectionName

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}

		stored, ok := collection.Metadata["dimension"].(float64)
		if ok && int(stored) == d.dimension {
			return collection.ID, nil
		}

		d.logger.Warn("collection dimension mismatch, rebuilding",
			zap.String("collection", d.collectionName),
			zap.Int("want", d.dimension),
			zap.Float64("have", stored),
		)
		if err := d.dropCollection(ctx); err != nil {
			return "", err
		}
	}

	return d.createCollection(ctx)
}

func (d *Driver) createCollection(ctx context.Context) (string, error) {
	body := chromaCreateRequest{
		Name: d.collectionName,
		Metadata: map[string]any{
			"dimension":  d.dimension,
			"hnsw:space": "cosine",
		},
	}

	var collection chromaCollection
	if err := d.post(ctx, d.collectionsURL(), body, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

func (d *Driver) dropCollection(ctx context.Context) error {
	url := d.collectionsURL() + "/" + d.collectionName

	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to drop collection: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Insert stores all chunks of a document and returns the count written.
func (d *Driver) Insert(ctx context.Context, doc vector.DocumentMeta, chunks []vector.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	documents := make([]string, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Embedding) != d.dimension {
			return 0, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				vector.ErrDimensionMismatch, i, len(chunk.Embedding), d.dimension)
		}

		ids[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		documents[i] = vector.ClampContent(chunk.Content)
		metadatas[i] = map[string]any{
			"doc_id":      doc.DocID,
			"doc_name":    doc.Name,
			"doc_type":    doc.Type,
			"chunk_index": chunk.Index,
			"created_at":  doc.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	body := chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
		Documents:  documents,
	}

	url := fmt.Sprintf("%s/%s/add", d.collectionsURL(), d.collectionID)
	if err := d.post(ctx, url, body, nil); err != nil {
		return 0, fmt.Errorf("adding chunks: %w", err)
	}

	d.logger.Debug("added chunks to chroma",
		zap.String("doc_id", doc.DocID),
		zap.Int("count", len(chunks)),
	)

	return len(chunks), nil
}

// Query finds the topK most similar chunks to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, docID string) ([]vector.Hit, error) {
	if len(embedding) != d.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimension)
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	body := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "documents"},
	}
	if docID != "" {
		body.Where = map[string]any{"doc_id": docID}
	}

	url := fmt.Sprintf("%s/%s/query", d.collectionsURL(), d.collectionID)
	var queryResp chromaQueryResponse
	if err := d.post(ctx, url, body, &queryResp); err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	var hits []vector.Hit
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return hits, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		hit := vector.Hit{Chunk: vector.Chunk{ID: id}}

		if i < len(metadatas) && metadatas[i] != nil {
			hit.DocID, hit.DocName, hit.Index, _ = parseMeta(metadatas[i])
		}
		if i < len(documents) {
			hit.Content = documents[i]
		}
		// Chroma reports cosine distance; similarity is its complement.
		if i < len(distances) {
			hit.Score = 1 - distances[i]
		}

		hits = append(hits, hit)
	}

	d.logger.Debug("queried chroma",
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// ListDocuments aggregates stored chunk metadata into per-document records.
func (d *Driver) ListDocuments(ctx context.Context) ([]vector.DocumentMeta, error) {
	resp, err := d.get(ctx, chromaGetRequest{
		Include: []string{"metadatas"},
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*vector.DocumentMeta)
	for _, meta := range resp.Metadatas {
		if meta == nil {
			continue
		}
		docID, name, _, createdAt := parseMeta(meta)
		if docID == "" {
			continue
		}

		doc, ok := byID[docID]
		if !ok {
			docType, _ := meta["doc_type"].(string)
			doc = &vector.DocumentMeta{
				DocID:     docID,
				Name:      name,
				Type:      docType,
				CreatedAt: createdAt,
			}
			byID[docID] = doc
		}
		doc.ChunkCount++
	}

	docs := make([]vector.DocumentMeta, 0, len(byID))
	for _, doc := range byID {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].DocID < docs[j].DocID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return docs, nil
}

// DeleteDocument removes all chunks of a document.
func (d *Driver) DeleteDocument(ctx context.Context, docID string) (int, error) {
	resp, err := d.get(ctx, chromaGetRequest{
		Where:   map[string]any{"doc_id": docID},
		Include: []string{"metadatas"},
	})
	if err != nil {
		return 0, err
	}
	if len(resp.IDs) == 0 {
		return 0, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}

	body := chromaDeleteRequest{
		Where: map[string]any{"doc_id": docID},
	}
	url := fmt.Sprintf("%s/%s/delete", d.collectionsURL(), d.collectionID)
	if err := d.post(ctx, url, body, nil); err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	d.logger.Debug("deleted document from chroma",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(resp.IDs)),
	)

	return len(resp.IDs), nil
}

// DocumentExists reports whether any chunk of the document is stored.
func (d *Driver) DocumentExists(ctx context.Context, docID string) (bool, error) {
	resp, err := d.get(ctx, chromaGetRequest{
		Where:   map[string]any{"doc_id": docID},
		Include: []string{"metadatas"},
		Limit:   1,
	})
	if err != nil {
		return false, err
	}
	return len(resp.IDs) > 0, nil
}

// GetChunks returns up to limit chunks of a document ordered by index.
func (d *Driver) GetChunks(ctx context.Context, docID string, limit int) ([]vector.Chunk, error) {
	resp, err := d.get(ctx, chromaGetRequest{
		Where:   map[string]any{"doc_id": docID},
		Include: []string{"metadatas", "documents"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}

	chunks := make([]vector.Chunk, len(resp.IDs))
	for i, id := range resp.IDs {
		chunks[i] = vector.Chunk{ID: id, DocID: docID}
		if i < len(resp.Metadatas) && resp.Metadatas[i] != nil {
			_, _, chunks[i].Index, _ = parseMeta(resp.Metadatas[i])
		}
		if i < len(resp.Documents) {
			chunks[i].Content = resp.Documents[i]
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})

	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}

	return chunks, nil
}

// Dimension returns the configured embedding dimension.
func (d *Driver) Dimension() int {
	return d.dimension
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) get(ctx context.Context, body chromaGetRequest) (*chromaGetResponse, error) {
	url := fmt.Sprintf("%s/%s/get", d.collectionsURL(), d.collectionID)
	var resp chromaGetResponse
	if err := d.post(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}
	return &resp, nil
}

func (d *Driver) post(ctx context.Context, url string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, utils.Truncate(string(respBody), 512))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func parseMeta(meta map[string]any) (docID, docName string, index int, createdAt time.Time) {
	docID, _ = meta["doc_id"].(string)
	docName, _ = meta["doc_name"].(string)
	if idx, ok := meta["chunk_index"].(float64); ok {
		index = int(idx)
	}
	if raw, ok := meta["created_at"].(string); ok {
		createdAt, _ = time.Parse(time.RFC3339, raw)
	}
	return docID, docName, index, createdAt
}

var _ vector.Store = (*Driver)(nil)

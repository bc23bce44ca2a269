// Package qdrant provides a Qdrant vector store implementation over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for document chunks.
	DefaultCollectionName = "satchel"

	// DefaultPort is Qdrant's default gRPC port.
	DefaultPort = 6334

	// scrollPageSize bounds full-collection scans (document listing).
	scrollPageSize = 10000
)

// Driver implements vector.Store using Qdrant's gRPC API.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	dimension      int
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server host. Required.
	Host string

	// Port is the gRPC port. Defaults to DefaultPort.
	Port int

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimension is the embedding dimension. If the existing collection
	// was created with a different dimension it is dropped and recreated.
	Dimension int
}

// NewDriver creates a new Qdrant vector store.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension is required")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:         client,
		collectionName: collectionName,
		dimension:      c.Dimension,
		logger:         logger,
	}

	if err := d.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensuring collection %q: %w", collectionName, err)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
		zap.Int("dimension", c.Dimension),
	)

	return d, nil
}

// ensureCollection creates the collection, dropping and recreating it when
// its vector size does not match the configured dimension.
func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	if exists {
		info, err := d.client.GetCollectionInfo(ctx, d.collectionName)
		if err != nil {
			return fmt.Errorf("%w: %v", vector.ErrConnection, err)
		}

		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if int(size) == d.dimension {
			return nil
		}

		d.logger.Warn("collection dimension mismatch, rebuilding",
			zap.String("collection", d.collectionName),
			zap.Int("want", d.dimension),
			zap.Uint64("have", size),
		)
		if err := d.client.DeleteCollection(ctx, d.collectionName); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// Insert stores all chunks of a document in one upsert and returns the
// count written.
func (d *Driver) Insert(ctx context.Context, doc vector.DocumentMeta, chunks []vector.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) != d.dimension {
			return 0, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				vector.ErrDimensionMismatch, i, len(chunk.Embedding), d.dimension)
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    chunk.ID,
				"doc_id":      doc.DocID,
				"doc_name":    doc.Name,
				"doc_type":    doc.Type,
				"chunk_index": int64(chunk.Index),
				"content":     vector.ClampContent(chunk.Content),
				"created_at":  doc.CreatedAt.UTC().Format(time.RFC3339),
			}),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("upserting chunks: %w", err)
	}

	d.logger.Debug("upserted chunks to qdrant",
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

	req := &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if docID != "" {
		req.Filter = docFilter(docID)
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	hits := make([]vector.Hit, 0, len(points))
	for _, p := range points {
		hit := vector.Hit{
			Chunk: chunkFromPayload(p.GetPayload()),
			Score: p.GetScore(),
		}
		hit.DocName = stringField(p.GetPayload(), "doc_name")
		hits = append(hits, hit)
	}

	d.logger.Debug("queried qdrant",
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// ListDocuments aggregates stored chunk payloads into per-document records.
func (d *Driver) ListDocuments(ctx context.Context) ([]vector.DocumentMeta, error) {
	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collectionName,
		Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
		WithPayload:    qdrant.NewWithPayloadInclude("doc_id", "doc_name", "doc_type", "created_at"),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling chunks: %w", err)
	}

	byID := make(map[string]*vector.DocumentMeta)
	for _, p := range points {
		payload := p.GetPayload()
		docID := stringField(payload, "doc_id")
		if docID == "" {
			continue
		}

		doc, ok := byID[docID]
		if !ok {
			createdAt, _ := time.Parse(time.RFC3339, stringField(payload, "created_at"))
			doc = &vector.DocumentMeta{
				DocID:     docID,
				Name:      stringField(payload, "doc_name"),
				Type:      stringField(payload, "doc_type"),
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
	count, err := d.countChunks(ctx, docID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}

	_, err = d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(docFilter(docID)),
	})
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	d.logger.Debug("deleted document from qdrant",
		zap.String("doc_id", docID),
		zap.Int("chunks", count),
	)

	return count, nil
}

// DocumentExists reports whether any chunk of the document is stored.
func (d *Driver) DocumentExists(ctx context.Context, docID string) (bool, error) {
	count, err := d.countChunks(ctx, docID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetChunks returns up to limit chunks of a document ordered by index.
func (d *Driver) GetChunks(ctx context.Context, docID string, limit int) ([]vector.Chunk, error) {
	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collectionName,
		Filter:         docFilter(docID),
		Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling chunks: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, docID)
	}

	chunks := make([]vector.Chunk, len(points))
	for i, p := range points {
		chunks[i] = chunkFromPayload(p.GetPayload())
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

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) countChunks(ctx context.Context, docID string) (int, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collectionName,
		Filter:         docFilter(docID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(count), nil
}

func docFilter(docID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("doc_id", docID),
		},
	}
}

// pointID derives a stable UUID point ID from a chunk ID. Qdrant only
// accepts UUIDs or unsigned integers as point IDs; the original chunk ID
// is kept in the payload.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

func chunkFromPayload(payload map[string]*qdrant.Value) vector.Chunk {
	return vector.Chunk{
		ID:      stringField(payload, "chunk_id"),
		DocID:   stringField(payload, "doc_id"),
		Index:   int(payload["chunk_index"].GetIntegerValue()),
		Content: stringField(payload, "content"),
	}
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	return payload[key].GetStringValue()
}

var _ vector.Store = (*Driver)(nil)

package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/extract"
)

// UploadResponse confirms a successful document ingestion.
type UploadResponse struct {
	DocID      string `json:"doc_id"`
	DocName    string `json:"doc_name"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

// DocumentInfo describes one stored document.
type DocumentInfo struct {
	DocID      string `json:"doc_id"`
	DocName    string `json:"doc_name"`
	DocType    string `json:"doc_type"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// DeleteResponse confirms a document removal.
type DeleteResponse struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

// DocumentChunk is one text block of a document preview.
type DocumentChunk struct {
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// DocumentPreviewResponse carries a document's chunks in reading order.
type DocumentPreviewResponse struct {
	DocID      string          `json:"doc_id"`
	DocName    string          `json:"doc_name"`
	DocType    string          `json:"doc_type"`
	ChunkCount int             `json:"chunk_count"`
	Chunks     []DocumentChunk `json:"chunks"`
}

// handleUpload ingests an uploaded file: spool to disk, extract, chunk,
// embed, store. The spooled file is removed afterwards either way.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file field is required"})
	}
	if fh.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file name is required"})
	}

	ext := extract.Ext(fh.Filename)
	if !extract.Allowed(ext) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: fmt.Sprintf("unsupported file type %q, supported: %s", ext, strings.Join(extract.AllowedTypes(), ", ")),
		})
	}

	if max := s.config.maxUploadBytes(); max > 0 && fh.Size > max {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error: fmt.Sprintf("file too large, maximum is %dMB", s.config.MaxUploadMB),
		})
	}

	dir := s.config.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.fail(c, fmt.Errorf("preparing upload dir: %w", err))
	}

	path := filepath.Join(dir, uuid.NewString()+"."+ext)
	if err := c.SaveFile(fh, path); err != nil {
		return s.fail(c, fmt.Errorf("saving upload: %w", err))
	}
	defer os.Remove(path)

	res, err := s.kb.Ingest(c.Context(), path, fh.Filename)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(UploadResponse{
		DocID:      res.DocID,
		DocName:    res.Name,
		ChunkCount: res.ChunkCount,
		Message:    fmt.Sprintf("document stored as %d chunks", res.ChunkCount),
	})
}

// handleListDocuments returns every document in the knowledge base.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	docs, err := s.kb.List(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]DocumentInfo, len(docs))
	for i, doc := range docs {
		out[i] = DocumentInfo{
			DocID:      doc.DocID,
			DocName:    doc.Name,
			DocType:    doc.Type,
			ChunkCount: doc.ChunkCount,
			CreatedAt:  doc.CreatedAt.Format(time.RFC3339),
		}
	}

	return c.JSON(out)
}

// handleDeleteDocument removes a document and all of its chunks.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	docID := c.Params("docID")

	n, err := s.kb.Delete(c.Context(), docID)
	if err != nil {
		return s.fail(c, err)
	}

	s.logger.Debug("deleted document via API",
		zap.String("doc_id", docID),
		zap.Int("chunks", n),
	)

	return c.JSON(DeleteResponse{
		Message: "document deleted",
		DocID:   docID,
	})
}

// handlePreviewDocument returns a document's chunks in reading order.
func (s *Server) handlePreviewDocument(c *fiber.Ctx) error {
	docID := c.Params("docID")

	preview, err := s.kb.GetPreview(c.Context(), docID, 0)
	if err != nil {
		return s.fail(c, err)
	}

	chunks := make([]DocumentChunk, len(preview.Chunks))
	for i, chunk := range preview.Chunks {
		chunks[i] = DocumentChunk{
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
		}
	}

	return c.JSON(DocumentPreviewResponse{
		DocID:      preview.Meta.DocID,
		DocName:    preview.Meta.Name,
		DocType:    preview.Meta.Type,
		ChunkCount: len(chunks),
		Chunks:     chunks,
	})
}

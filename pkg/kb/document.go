package kb

import (
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkwellhq/satchel/pkg/vector"
)

// NewDocID derives a document ID from the file name and a fresh UUID,
// so re-uploading the same file yields a distinct document.
func NewDocID(filename string) string {
	sum := md5.Sum([]byte(filename + uuid.NewString()))
	return fmt.Sprintf("%x", sum)
}

// ChunkID names a chunk by its document and position.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-%d", docID, index)
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocID      string
	Name       string
	Type       string
	ChunkCount int
}

// Preview holds a document's metadata and its leading chunks.
type Preview struct {
	Meta   vector.DocumentMeta
	Chunks []vector.Chunk
}

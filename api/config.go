// Package api provides the HTTP API server for the knowledge base:
// document upload and management plus retrieval-augmented chat.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// UploadDir is where uploaded files are spooled before ingestion.
	// Empty means the system temp directory.
	UploadDir string

	// MaxUploadMB caps the size of a single uploaded file in megabytes.
	MaxUploadMB uint
}

// maxUploadBytes returns the upload cap in bytes.
func (c Config) maxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent satchel configuration stored as
// config.toml in the .satchel/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Upload      UploadConfig      `toml:"upload"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chat        ChatConfig        `toml:"chat"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// Dir is where uploaded files are spooled before ingestion.
	// Empty means the system temp directory.
	Dir string `toml:"dir,omitempty"`

	// MaxMB caps the size of an uploaded file, in megabytes.
	MaxMB uint `toml:"max_mb,omitempty"`
}

// ChunkingConfig holds document splitting settings.
type ChunkingConfig struct {
	Size    uint `toml:"size,omitempty"`
	Overlap uint `toml:"overlap,omitempty"`
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	TopK uint `toml:"top_k,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Host       string `toml:"host,omitempty"`
	Port       uint   `toml:"port,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChatConfig holds chat model provider settings.
type ChatConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// IngestConfig holds background ingestion settings.
type IngestConfig struct {
	// WatchDir enables the directory watcher when non-empty.
	WatchDir string `toml:"watch_dir,omitempty"`

	// Workers is the ingestion worker pool size.
	Workers uint `toml:"workers,omitempty"`

	// QueueSize is the ingestion job queue capacity.
	QueueSize uint `toml:"queue_size,omitempty"`
}

// Validate checks cross-field constraints that defaults alone cannot
// guarantee.
func (c *Config) Validate() error {
	if c.Chunking.Size == 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Embedding.Dimensions == 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Retrieval.TopK == 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) *uint, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"upload.dir": {
		get: func(c *Config) string { return c.Upload.Dir },
		set: func(c *Config, v string) error { c.Upload.Dir = v; return nil },
	},
	"upload.max_mb":     uintKey(func(c *Config) *uint { return &c.Upload.MaxMB }, "upload.max_mb"),
	"chunking.size":     uintKey(func(c *Config) *uint { return &c.Chunking.Size }, "chunking.size"),
	"chunking.overlap":  uintKey(func(c *Config) *uint { return &c.Chunking.Overlap }, "chunking.overlap"),
	"retrieval.top_k":   uintKey(func(c *Config) *uint { return &c.Retrieval.TopK }, "retrieval.top_k"),
	"vector_store.port": uintKey(func(c *Config) *uint { return &c.VectorStore.Port }, "vector_store.port"),
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.host": {
		get: func(c *Config) string { return c.VectorStore.Host },
		set: func(c *Config, v string) error { c.VectorStore.Host = v; return nil },
	},
	"vector_store.api_key": {
		get: func(c *Config) string { return c.VectorStore.APIKey },
		set: func(c *Config, v string) error { c.VectorStore.APIKey = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"embedding.dimensions": uintKey(func(c *Config) *uint { return &c.Embedding.Dimensions }, "embedding.dimensions"),
	"chat.provider": {
		get: func(c *Config) string { return c.Chat.Provider },
		set: func(c *Config, v string) error { c.Chat.Provider = v; return nil },
	},
	"chat.target": {
		get: func(c *Config) string { return c.Chat.Target },
		set: func(c *Config, v string) error { c.Chat.Target = v; return nil },
	},
	"chat.model": {
		get: func(c *Config) string { return c.Chat.Model },
		set: func(c *Config, v string) error { c.Chat.Model = v; return nil },
	},
	"chat.api_key": {
		get: func(c *Config) string { return c.Chat.APIKey },
		set: func(c *Config, v string) error { c.Chat.APIKey = v; return nil },
	},
	"ingest.watch_dir": {
		get: func(c *Config) string { return c.Ingest.WatchDir },
		set: func(c *Config, v string) error { c.Ingest.WatchDir = v; return nil },
	},
	"ingest.workers":    uintKey(func(c *Config) *uint { return &c.Ingest.Workers }, "ingest.workers"),
	"ingest.queue_size": uintKey(func(c *Config) *uint { return &c.Ingest.QueueSize }, "ingest.queue_size"),
}

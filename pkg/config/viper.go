package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/inkwellhq/satchel/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the SATCHEL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (SATCHEL_API_LISTEN, SATCHEL_CHUNKING_SIZE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: SATCHEL_API_LISTEN, SATCHEL_EMBEDDING_MODEL, etc.
	v.SetEnvPrefix("SATCHEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ConfigFromViper materializes a Config from the viper precedence chain
// and validates it.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Upload: UploadConfig{
			Dir:   v.GetString("upload.dir"),
			MaxMB: v.GetUint("upload.max_mb"),
		},
		Chunking: ChunkingConfig{
			Size:    v.GetUint("chunking.size"),
			Overlap: v.GetUint("chunking.overlap"),
		},
		Retrieval: RetrievalConfig{
			TopK: v.GetUint("retrieval.top_k"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Host:       v.GetString("vector_store.host"),
			Port:       v.GetUint("vector_store.port"),
			APIKey:     v.GetString("vector_store.api_key"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			APIKey:     v.GetString("embedding.api_key"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Chat: ChatConfig{
			Provider: v.GetString("chat.provider"),
			Target:   v.GetString("chat.target"),
			Model:    v.GetString("chat.model"),
			APIKey:   v.GetString("chat.api_key"),
		},
		Ingest: IngestConfig{
			WatchDir:  v.GetString("ingest.watch_dir"),
			Workers:   v.GetUint("ingest.workers"),
			QueueSize: v.GetUint("ingest.queue_size"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Upload
	v.SetDefault("upload.dir", d.Upload.Dir)
	v.SetDefault("upload.max_mb", d.Upload.MaxMB)

	// Chunking
	v.SetDefault("chunking.size", d.Chunking.Size)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.host", d.VectorStore.Host)
	v.SetDefault("vector_store.port", d.VectorStore.Port)
	v.SetDefault("vector_store.api_key", d.VectorStore.APIKey)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Chat
	v.SetDefault("chat.provider", d.Chat.Provider)
	v.SetDefault("chat.target", d.Chat.Target)
	v.SetDefault("chat.model", d.Chat.Model)
	v.SetDefault("chat.api_key", d.Chat.APIKey)

	// Ingest
	v.SetDefault("ingest.watch_dir", d.Ingest.WatchDir)
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.queue_size", d.Ingest.QueueSize)
}

package config

const (
	defaultAPIListen = ":8080"

	defaultUploadMaxMB = 20

	defaultChunkSize    = 500
	defaultChunkOverlap = 50

	defaultTopK = 5

	defaultVectorProvider   = "chroma"
	defaultVectorTarget     = "http://localhost:8000"
	defaultVectorHost       = "localhost"
	defaultVectorPort       = 6334
	defaultVectorCollection = "satchel"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultChatProvider = "ollama"
	defaultChatTarget   = "http://localhost:11434"
	defaultChatModel    = "llama3.2"

	defaultIngestWorkers   = 3
	defaultIngestQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Upload: UploadConfig{
			MaxMB: defaultUploadMaxMB,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Host:       defaultVectorHost,
			Port:       defaultVectorPort,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chat: ChatConfig{
			Provider: defaultChatProvider,
			Target:   defaultChatTarget,
			Model:    defaultChatModel,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
	}
}

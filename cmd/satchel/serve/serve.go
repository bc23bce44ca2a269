// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/api"
	"github.com/inkwellhq/satchel/pkg/chunker"
	"github.com/inkwellhq/satchel/pkg/config"
	embeddingutils "github.com/inkwellhq/satchel/pkg/embeddings/utils"
	"github.com/inkwellhq/satchel/pkg/ingest"
	"github.com/inkwellhq/satchel/pkg/kb"
	llmutils "github.com/inkwellhq/satchel/pkg/llm/utils"
	"github.com/inkwellhq/satchel/pkg/logger"
	"github.com/inkwellhq/satchel/pkg/rag"
	vectorutils "github.com/inkwellhq/satchel/pkg/vector/utils"
)

type ServeCommander struct {
	cfg    *config.Config
	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the Satchel API server.

Serves document upload, listing, deletion and preview, plus blocking
and streaming retrieval-augmented chat. When ingest.watch_dir is
configured, files dropped into that directory are ingested in the
background.

Configuration precedence: flags > SATCHEL_* environment variables >
config.toml > defaults.`

const serveShortDesc string = "Run the Satchel API server"

// serveFlags defines the flags this command exposes and the config keys
// they override.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagUploadDir: {
		Name:        "upload-dir",
		ViperKey:    "upload.dir",
		Description: "Directory where uploads are spooled before ingestion",
	},
	config.FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "chunking.size",
		Description: "Chunk size in characters",
	},
	config.FlagChunkOverlap: {
		Name:        "chunk-overlap",
		ViperKey:    "chunking.overlap",
		Description: "Chunk overlap in characters",
	},
	config.FlagTopK: {
		Name:        "top-k",
		ViperKey:    "retrieval.top_k",
		Description: "Default number of chunks retrieved per question",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store",
		ViperKey:    "vector_store.provider",
		Description: "Vector store provider (chroma, qdrant)",
	},
	config.FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Vector store URL (chroma)",
	},
	config.FlagVectorStoreColl: {
		Name:        "collection",
		ViperKey:    "vector_store.collection",
		Description: "Vector store collection name",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagChatProv: {
		Name:        "chat-provider",
		ViperKey:    "chat.provider",
		Description: "Chat provider (ollama, openai)",
	},
	config.FlagChatTgt: {
		Name:        "chat-target",
		ViperKey:    "chat.target",
		Description: "Chat provider URL",
	},
	config.FlagChatModel: {
		Name:        "chat-model",
		ViperKey:    "chat.model",
		Description: "Chat model name",
	},
	config.FlagWatchDir: {
		Name:        "watch-dir",
		ViperKey:    "ingest.watch_dir",
		Description: "Directory to watch for documents to ingest",
	},
}

// serveFlagKeys lists every registry key bound by this command.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagUploadDir,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagTopK,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreColl,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChatProv,
	config.FlagChatTgt,
	config.FlagChatModel,
	config.FlagWatchDir,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var (
		listen, uploadDir                           string
		vsProvider, vsTarget, vsCollection          string
		embProvider, embTarget, embModel            string
		chatProvider, chatTarget, chatModel         string
		watchDir                                    string
		chunkSize, chunkOverlap, topK, embedderDims uint
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.cfg, err = config.ConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagUploadDir, &uploadDir)
	config.AddUintFlag(cmd, serveFlags, config.FlagChunkSize, &chunkSize)
	config.AddUintFlag(cmd, serveFlags, config.FlagChunkOverlap, &chunkOverlap)
	config.AddUintFlag(cmd, serveFlags, config.FlagTopK, &topK)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &vsProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &vsTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreColl, &vsCollection)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &embProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &embTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &embModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &embedderDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatProv, &chatProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatTgt, &chatTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatModel, &chatModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagWatchDir, &watchDir)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := c.cfg

	store, err := vectorutils.NewStore(&vectorutils.NewStoreOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Host:         cfg.VectorStore.Host,
		Port:         int(cfg.VectorStore.Port),
		APIKey:       cfg.VectorStore.APIKey,
		Collection:   cfg.VectorStore.Collection,
		Dimension:    int(cfg.Embedding.Dimensions),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	chatClient, err := llmutils.NewChatClient(&llmutils.NewChatClientOpts{
		ProviderType: cfg.Chat.Provider,
		TargetURL:    cfg.Chat.Target,
		Model:        cfg.Chat.Model,
		APIKey:       cfg.Chat.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}
	defer chatClient.Close()

	splitter, err := chunker.New(int(cfg.Chunking.Size), int(cfg.Chunking.Overlap))
	if err != nil {
		return fmt.Errorf("creating splitter: %w", err)
	}

	kbs := kb.NewService(store, embedder, splitter, c.logger)
	pipeline := rag.NewPipeline(store, embedder, chatClient, c.logger)

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.API.Listen,
		UploadDir:   cfg.Upload.Dir,
		MaxUploadMB: cfg.Upload.MaxMB,
	}, kbs, pipeline, c.logger)

	pool, err := ingest.NewPool(&ingest.Config{
		Service:    kbs,
		NumWorkers: cfg.Ingest.Workers,
		QueueSize:  cfg.Ingest.QueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingest pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if cfg.Ingest.WatchDir != "" {
		watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
			Dir:    cfg.Ingest.WatchDir,
			Pool:   pool,
			Logger: c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		c.logger.Warn("API server shutdown failed", zap.Error(err))
	}
	pool.Close()

	return nil
}

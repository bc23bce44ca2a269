// Package ingestcmder provides the ingest command for loading documents
// into the knowledge base from the command line.
package ingestcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/chunker"
	"github.com/inkwellhq/satchel/pkg/cliui"
	"github.com/inkwellhq/satchel/pkg/config"
	embeddingutils "github.com/inkwellhq/satchel/pkg/embeddings/utils"
	"github.com/inkwellhq/satchel/pkg/extract"
	"github.com/inkwellhq/satchel/pkg/ingest"
	"github.com/inkwellhq/satchel/pkg/kb"
	"github.com/inkwellhq/satchel/pkg/logger"
	vectorutils "github.com/inkwellhq/satchel/pkg/vector/utils"
)

type IngestCommander struct {
	cfg    *config.Config
	debug  bool
	logger *zap.Logger
}

const ingestLongDesc string = `Ingest documents into the knowledge base.

Accepts files and directories. Directories are walked recursively and
every supported file is ingested through the worker pool. Supported
types: pdf, docx, doc, txt, md.

Examples:
  satchel ingest notes.md
  satchel ingest ~/Documents/manuals/`

const ingestShortDesc string = "Ingest documents into the knowledge base"

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			cmder.cfg, err = config.ConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return cmder.run(args)
		},
	}

	return cmd
}

func (c *IngestCommander) run(paths []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	files, err := collectFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported documents found (supported: %s)",
			strings.Join(extract.AllowedTypes(), ", "))
	}

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

	splitter, err := chunker.New(int(cfg.Chunking.Size), int(cfg.Chunking.Overlap))
	if err != nil {
		return fmt.Errorf("creating splitter: %w", err)
	}

	kbs := kb.NewService(store, embedder, splitter, c.logger)

	pool, err := ingest.NewPool(&ingest.Config{
		Service:    kbs,
		NumWorkers: cfg.Ingest.Workers,
		QueueSize:  uint(len(files)),
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingest pool: %w", err)
	}

	err = cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %d documents", len(files)), func() error {
		for _, file := range files {
			if !pool.Enqueue(ingest.Job{Path: file}) {
				return fmt.Errorf("ingest queue overflowed at %s", file)
			}
		}
		pool.Close()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Done. Run %s to inspect the knowledge base.\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("satchel serve"),
	)
	return nil
}

// collectFiles expands paths into the supported files beneath them.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if !info.IsDir() {
			if !extract.Allowed(extract.Ext(path)) {
				return nil, fmt.Errorf("unsupported file type: %s", path)
			}
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && extract.Allowed(extract.Ext(p)) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}
	return files, nil
}

package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/extract"
)

// DefaultSettleDelay is how long a watched file must stay quiet before
// it is enqueued. Editors and copies fire several write events per file.
const DefaultSettleDelay = 500 * time.Millisecond

// WatcherConfig configures a directory watcher.
type WatcherConfig struct {
	// Dir is the directory to watch. Required.
	Dir string

	// Pool receives a job per settled file. Required.
	Pool *Pool

	// SettleDelay overrides DefaultSettleDelay.
	SettleDelay time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Watcher enqueues ingestion jobs for files dropped into a directory.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher on the configured directory.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if c.Pool == nil {
		return nil, fmt.Errorf("ingest pool is required")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	if err := fsw.Add(c.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{
		config:  c,
		watcher: fsw,
		logger:  c.Logger,
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Run blocks, turning file events into ingestion jobs until the context
// is canceled. Each file is enqueued once it has stayed quiet for the
// settle delay.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching directory for documents",
		zap.String("dir", w.config.Dir),
	)

	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !extract.Allowed(extract.Ext(event.Name)) {
				continue
			}
			w.touch(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// touch resets the settle timer for a path, creating it on first sight.
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.config.SettleDelay)
		return
	}

	w.timers[path] = time.AfterFunc(w.config.SettleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.config.Pool.Enqueue(Job{
			Path:     path,
			Filename: filepath.Base(path),
		})
	})
}

func baseName(path string) string {
	return filepath.Base(path)
}

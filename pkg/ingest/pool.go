// Package ingest provides background document ingestion: a worker pool
// that feeds files into the knowledge base, and a directory watcher that
// enqueues files as they appear.
//
// The pool decouples ingestion from the API hot path so uploads and
// watched-directory drops never block request handling.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/kb"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one file for the worker pool to ingest.
type Job struct {
	// Path is the file's location on disk.
	Path string

	// Filename is the name recorded for the document. Defaults to the
	// base of Path when empty.
	Filename string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Service is the knowledge base the pool ingests into.
	Service *kb.Service

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool ingests documents asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("knowledge base service is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("ingest job queued",
			zap.String("path", job.Path),
		)
		return true
	default:
		p.logger.Error("ingest job not queued, queue full, job dropped",
			zap.String("path", job.Path),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("ingest worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", zap.Uint("worker_id", id))
}

// processJob ingests one file. Errors are logged but not returned; a
// failed file never blocks the rest of the queue.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	filename := job.Filename
	if filename == "" {
		filename = baseName(job.Path)
	}

	result, err := p.config.Service.Ingest(ctx, job.Path, filename)
	if err != nil {
		p.logger.Error("async ingestion failed",
			zap.String("path", job.Path),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("document ingested",
		zap.String("doc_id", result.DocID),
		zap.String("name", result.Name),
		zap.Int("chunks", result.ChunkCount),
	)
}

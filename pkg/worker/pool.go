// Package worker provides an asynchronous worker pool for persisting chat
// turns using the provided storage.Driver and announcing them on the
// provided eventstream.Publisher.
//
// The pool decouples storage operations from the API's streaming hot path so
// a slow database never stalls a response relay.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one completed chat turn to persist.
type Job struct {
	UserID  string
	Context llm.Context

	// Turn holds the user message followed by the assistant reply.
	Turn []llm.Message

	StartedAt   time.Time
	CompletedAt time.Time
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting messages.
	Driver storage.Driver

	// Publisher is the optional event publisher for persisted turns.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed so Enqueue never sends on a closed queue.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
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

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "user_id", job.UserID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"user_id", job.UserID,
			"context", job.Context,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"user_id", job.UserID,
			"context", job.Context,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the turn and publishes it when a publisher is configured.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	ids, err := p.storeTurn(ctx, job)
	if err != nil {
		p.logger.Error("async turn storage failed",
			"user_id", job.UserID,
			"error", err,
		)
		return
	}

	p.logger.Info("chat turn stored",
		"user_id", job.UserID,
		"messages", len(ids),
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewChatTurnPersistedEvent(job.UserID, job.Context, ids, job.Turn, job.StartedAt, job.CompletedAt)
	if err := p.config.Publisher.PublishChatTurn(ctx, event); err != nil {
		p.logger.Warn("failed to publish chat turn event",
			"user_id", job.UserID,
			"error", err,
		)
	}
}

// storeTurn appends the turn's messages and returns their ids.
func (p *Pool) storeTurn(ctx context.Context, job Job) ([]string, error) {
	completed := job.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	msgs := make([]storage.ChatMessage, 0, len(job.Turn))
	for i, m := range job.Turn {
		if m.IsBlank() {
			continue
		}
		msgs = append(msgs, storage.ChatMessage{
			UserID:  job.UserID,
			Context: job.Context,
			Role:    m.Role,
			Content: m.Content,
			// distinct timestamps keep the turn order when sorting by time
			CreatedAt: completed.Add(time.Duration(i) * time.Microsecond),
		})
	}

	prepared, err := storage.PrepareMessages(msgs, completed)
	if err != nil {
		return nil, err
	}

	if err := p.config.Driver.AppendMessages(ctx, prepared...); err != nil {
		return nil, fmt.Errorf("storing chat turn: %w", err)
	}

	ids := make([]string, len(prepared))
	for i, m := range prepared {
		ids[i] = m.ID
	}
	return ids, nil
}

// Package worker provides an asynchronous worker pool for persisting
// assistant replies with the provided storage.Driver and announcing them on
// the provided eventstream.Publisher.
//
// The pool decouples storage from the chat stream's HTTP hot path so the
// client sees the last delta as soon as the upstream platform sends it.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/consolechat/pkg/eventstream"
	"github.com/papercomputeco/consolechat/pkg/logger"
	"github.com/papercomputeco/consolechat/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a finished assistant reply waiting to be stored.
type Job struct {
	ConversationID int64
	UserID         int64
	Platform       string
	Model          string
	Content        string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting messages.
	Driver storage.Driver

	// Publisher is notified of every stored reply. Optional.
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

	if c.Logger == nil {
		c.Logger = logger.Nop()
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
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed, job dropped",
			"conversation_id", job.ConversationID,
			"platform", job.Platform,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation_id", job.ConversationID,
			"platform", job.Platform,
			"model", job.Model,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation_id", job.ConversationID,
			"platform", job.Platform,
			"model", job.Model,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
// Jobs enqueued after Close are dropped.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
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

// processJob stores the reply and publishes its event. Failures are
// logged; the client already has the reply.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	msg, err := p.config.Driver.AddMessage(ctx, &storage.Message{
		ConversationID: job.ConversationID,
		UserID:         job.UserID,
		Type:           storage.MessageTypeAssistant,
		Model:          job.Model,
		Content:        job.Content,
	})
	if err != nil {
		p.logger.Error("async message storage failed",
			"conversation_id", job.ConversationID,
			"platform", job.Platform,
			"error", err,
		)
		return
	}

	p.logger.Info("assistant message stored",
		"conversation_id", job.ConversationID,
		"message_id", msg.ID,
		"platform", job.Platform,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewMessagePersistedEvent(eventstream.MessageMeta{
		ConversationID: job.ConversationID,
		MessageID:      msg.ID,
		UserID:         job.UserID,
		Platform:       job.Platform,
		Model:          job.Model,
		Content:        job.Content,
	})
	if err := p.config.Publisher.PublishMessage(ctx, event); err != nil {
		p.logger.Warn("failed to publish message event",
			"event_id", event.EventID,
			"conversation_id", job.ConversationID,
			"error", err,
		)
	}
}

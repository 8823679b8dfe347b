// Package worker applies queued submission jobs to the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/mq/queue"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Committer persists one commit atomically.
type Committer interface {
	Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and writes them through the committer.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the single writer for the profiles routed to its queue.
type InMemoryWorker struct {
	queue     Queue
	committer Committer
	name      string
	onCommit  func(model.Profile, model.Review, bool)

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, c Committer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		committer: c,
		name:      "worker",
		done:      make(chan struct{}),
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes jobs until the queue is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown waits for Run to return. Close the queue first to drain it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	if !job.Claim() {
		w.logger.Debug(ctx, "skipping abandoned job", logger.String("key", job.Key))
		return
	}
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	p, r, err := w.committer.Commit(ctx, job.Commit)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", errorKind(err))
		w.logger.Error(ctx, "commit failed",
			logger.String("key", job.Key),
			logger.Error(err),
		)
		job.Respond(queue.Result{Err: err})
		return
	}

	created := job.Commit.NewProfile != nil
	if created {
		metrics.RecordProfileCreated()
	}
	w.logger.Debug(ctx, "commit applied",
		logger.String("profile_id", p.ID),
		logger.String("review_id", r.ID),
		logger.Float64("queued_ms", float64(start.Sub(job.Enqueued).Microseconds())/1000),
	)
	if w.onCommit != nil {
		w.onCommit(p, r, created)
	}
	job.Respond(queue.Result{Profile: p, Review: r})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalid):
		return "invalid_commit"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context_cancelled"
	}
	return "store_error"
}

// Pool runs one worker per shard of a sharded queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   *queue.Sharded

	logger logger.Logger
}

// NewPool creates a worker for every shard of q.
func NewPool(q *queue.Sharded, c Committer, opts ...Option) *Pool {
	base := &InMemoryWorker{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(base)
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, q.Shards()),
		queue:   q,
		logger:  base.logger.Named("worker-pool"),
	}
	for i := range pool.workers {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q.Shard(i), c, wopts...)
	}
	metrics.UpdateWorkerCount(len(pool.workers))
	return pool
}

// DefaultWorkerCount is the shard count used when none is configured.
func DefaultWorkerCount() int {
	return runtime.NumCPU()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = true
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool: %w", shutdownCtx.Err())
	}
	return nil
}

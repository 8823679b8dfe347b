// Package queue carries submission jobs from the HTTP layer to the workers
// that commit them.
//
// Jobs are routed to shards by profile id so every commit against one profile
// is applied by a single consumer.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Result is what a worker sends back for a job.
type Result struct {
	Profile model.Profile
	Review  model.Review
	Err     error
}

// Job is one pending commit.
type Job struct {
	// Key routes the job to a shard: the profile id, or a fresh id when the
	// commit creates the profile.
	Key      string
	Commit   model.Commit
	Enqueued time.Time

	// Reply receives exactly one Result. It must be buffered.
	Reply chan<- Result

	// state is shared by copies of the job; nil means the job cannot be
	// abandoned.
	state *atomic.Int32
}

const (
	jobPending int32 = iota
	jobClaimed
	jobAbandoned
)

// NewJob creates a job whose caller may abandon it before a worker claims it.
func NewJob(key string, c model.Commit, reply chan<- Result) Job {
	return Job{Key: key, Commit: c, Enqueued: time.Now(), Reply: reply, state: new(atomic.Int32)}
}

// Claim marks the job as taken by a worker. It returns false when the caller
// abandoned it first; the job must then be skipped.
func (j Job) Claim() bool {
	if j.state == nil {
		return true
	}
	return j.state.CompareAndSwap(jobPending, jobClaimed)
}

// abandon withdraws a job no worker has claimed yet.
func (j Job) abandon() bool {
	if j.state == nil {
		return false
	}
	return j.state.CompareAndSwap(jobPending, jobAbandoned)
}

// Respond delivers r to the job's reply channel without blocking.
func (j Job) Respond(r Result) {
	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- r:
	default:
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job to the queue.
	// Returns false if the queue is full or closed and the job was not enqueued.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel that will receive jobs as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	report   bool

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		report:   true,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	if q.report {
		metrics.UpdateQueueCapacity(q.capacity)
		metrics.UpdateQueueSize(0)
		metrics.UpdateQueueUtilization(0.0)
	}
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		q.reportSize()
		return true
	default:
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				q.reportSize()
			case <-ctx.Done():
				j.Respond(Result{Err: ctx.Err()})
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.jobs)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting jobs. Queued jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) reportSize() {
	if !q.report {
		return
	}
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

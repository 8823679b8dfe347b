package queue

import (
	"context"

	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
	"github.com/cespare/xxhash/v2"
)

// Sharded spreads jobs over n bounded queues by the hash of Job.Key.
// The total capacity is split evenly between the shards.
type Sharded struct {
	shards   []*InMemoryQueue
	capacity int
}

// NewSharded creates n shards holding capacity jobs in total.
func NewSharded(n, capacity int) *Sharded {
	if n < 1 {
		n = 1
	}
	if capacity < n {
		capacity = n
	}
	per := capacity / n
	s := &Sharded{shards: make([]*InMemoryQueue, n), capacity: per * n}
	for i := range s.shards {
		s.shards[i] = NewInMemoryQueue(WithCapacity(per), withoutMetrics())
	}
	metrics.UpdateQueueCapacity(s.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return s
}

// ShardFor returns the shard index a key routes to.
func (s *Sharded) ShardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.shards)))
}

// Shard returns shard i.
func (s *Sharded) Shard(i int) Queue {
	return s.shards[i]
}

// Shards returns the number of shards.
func (s *Sharded) Shards() int {
	return len(s.shards)
}

// Enqueue routes j to its shard.
func (s *Sharded) Enqueue(ctx context.Context, j Job) bool {
	ok := s.shards[s.ShardFor(j.Key)].Enqueue(ctx, j)
	s.report(ctx)
	return ok
}

// Len returns the number of jobs queued over every shard.
func (s *Sharded) Len(ctx context.Context) int {
	n := 0
	for _, q := range s.shards {
		n += q.Len(ctx)
	}
	return n
}

// Cap returns the total capacity.
func (s *Sharded) Cap() int {
	return s.capacity
}

// IsClosed reports whether the shards are closed.
func (s *Sharded) IsClosed() bool {
	return s.shards[0].IsClosed()
}

// Close closes every shard.
func (s *Sharded) Close() error {
	for _, q := range s.shards {
		_ = q.Close()
	}
	return nil
}

func (s *Sharded) report(ctx context.Context) {
	size := s.Len(ctx)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(s.capacity))
}

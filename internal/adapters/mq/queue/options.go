package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of buffered jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// withoutMetrics stops a shard from reporting queue gauges on its own; the
// owning Sharded queue reports the totals.
func withoutMetrics() Option {
	return func(q *InMemoryQueue) {
		q.report = false
	}
}

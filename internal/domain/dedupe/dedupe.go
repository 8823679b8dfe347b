// Package dedupe tracks idempotency keys so a retried submission is applied at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen idempotency keys and, once known, the result they produced.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Complete attaches the result of the first successful attempt to key so
	// later retries can replay it.
	Complete(ctx context.Context, key string, result any)

	// Result returns the stored result for key. ok is false while the first
	// attempt is still in flight or when the key is unknown.
	Result(ctx context.Context, key string) (result any, ok bool)

	// Unrecord forgets key, allowing it to be retried. Used when the
	// submission was recorded but never committed (backpressure, failure).
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key    string
	result any
	done   bool
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest first
// once maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.index[key] = d.order.PushBack(&entry{key: key})
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Complete(_ context.Context, key string, result any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		e := el.Value.(*entry)
		e.result = result
		e.done = true
	}
}

func (d *inMemoryDeduper) Result(_ context.Context, key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	return e.result, e.done
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.index, front.Value.(*entry).key)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

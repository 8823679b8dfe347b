// Package feed turns store changes into live snapshot streams.
//
// Writers announce a Change through a Notifier. The Hub reacts by pulling the
// full profile list (and the touched profile's reviews) and handing the new
// snapshot to every subscriber.
package feed

import (
	"context"
	"sync"
)

// Change kinds.
const (
	ChangeReview  = "review"
	ChangeProfile = "profile"
	ChangeFlag    = "flag"
)

// Change announces that a profile or one of its reviews changed.
type Change struct {
	Kind      string `json:"kind"`
	ProfileID string `json:"profile_id"`
}

// Notifier carries changes to the hub.
type Notifier interface {
	// Notify announces a change. It never blocks on slow consumers.
	Notify(ctx context.Context, c Change) error

	// Changes streams announced changes until ctx ends or the notifier closes.
	Changes(ctx context.Context) <-chan Change

	// Close stops delivery.
	Close() error
}

// LocalNotifier delivers changes within the process. Pending changes are
// coalesced, so a burst of commits on one profile yields one pull.
type LocalNotifier struct {
	mu      sync.Mutex
	pending []Change
	signal  chan struct{}
	done    chan struct{}
	closed  bool
}

// NewLocalNotifier creates an in-process notifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Notify queues c unless an identical change is already pending.
func (n *LocalNotifier) Notify(ctx context.Context, c Change) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	dup := false
	for _, p := range n.pending {
		if p == c {
			dup = true
			break
		}
	}
	if !dup {
		n.pending = append(n.pending, c)
	}
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
	return nil
}

// Changes streams pending changes. Only one consumer should read it.
func (n *LocalNotifier) Changes(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-n.done:
				return
			case <-n.signal:
			}

			n.mu.Lock()
			batch := n.pending
			n.pending = nil
			n.mu.Unlock()

			for _, c := range batch {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				case <-n.done:
					return
				}
			}
		}
	}()
	return out
}

// Close stops every Changes stream.
func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.done)
	}
	return nil
}

package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

// Source is where the hub pulls full snapshots from.
type Source interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	ListReviews(ctx context.Context, profileID string) ([]model.Review, error)
}

// Snapshot is an immutable copy of every profile.
type Snapshot struct {
	Seq      uint64          `json:"seq"`
	At       time.Time       `json:"at"`
	Profiles []model.Profile `json:"profiles"`
}

// ReviewSnapshot is an immutable copy of one profile's reviews, newest first.
type ReviewSnapshot struct {
	Seq       uint64         `json:"seq"`
	At        time.Time      `json:"at"`
	ProfileID string         `json:"profile_id"`
	Reviews   []model.Review `json:"reviews"`
}

// mailbox holds at most one undelivered value; a newer value replaces it.
type mailbox[T any] struct {
	ch chan T
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, 1)}
}

// offer must be called by one producer at a time.
func (m *mailbox[T]) offer(v T) {
	for {
		select {
		case m.ch <- v:
			return
		default:
			select {
			case <-m.ch:
			default:
			}
		}
	}
}

// Hub fans snapshots out to subscribers.
type Hub struct {
	src      Source
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time

	seq       atomic.Uint64
	refreshMu sync.Mutex // serialises pull+publish so Seq order matches data order

	mu          sync.Mutex
	nextID      uint64
	profiles    *Snapshot
	reviews     map[string]*ReviewSnapshot
	profileSubs map[uint64]*mailbox[Snapshot]
	reviewSubs  map[string]map[uint64]*mailbox[ReviewSnapshot]
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHubClock overrides the snapshot timestamp source.
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub creates a hub reading from src and listening on n.
func NewHub(src Source, n Notifier, opts ...HubOption) *Hub {
	h := &Hub{
		src:         src,
		notifier:    n,
		logger:      logger.NewNop(),
		now:         time.Now,
		reviews:     make(map[string]*ReviewSnapshot),
		profileSubs: make(map[uint64]*mailbox[Snapshot]),
		reviewSubs:  make(map[string]map[uint64]*mailbox[ReviewSnapshot]),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run reacts to changes until ctx ends or the notifier closes.
func (h *Hub) Run(ctx context.Context) {
	for c := range h.notifier.Changes(ctx) {
		h.handle(ctx, c)
	}
}

func (h *Hub) handle(ctx context.Context, c Change) {
	if h.profileSubscribers() > 0 || h.hasProfileSnapshot() {
		_, _ = h.refreshProfiles(ctx)
	}
	if h.reviewSubscribers(c.ProfileID) > 0 {
		_, _ = h.refreshReviews(ctx, c.ProfileID)
	}
}

// SubscribeProfiles streams profile snapshots, starting with the current one.
// The stream ends when cancel is called or ctx ends.
func (h *Hub) SubscribeProfiles(ctx context.Context) (<-chan Snapshot, func(), error) {
	snap, err := h.currentProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}

	box := newMailbox[Snapshot]()
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.profileSubs[id] = box
	if h.profiles != nil && h.profiles.Seq > snap.Seq {
		snap = h.profiles
	}
	box.offer(*snap)
	h.mu.Unlock()
	h.reportSubscribers()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.profileSubs, id)
			close(box.ch)
			h.mu.Unlock()
			h.reportSubscribers()
		})
	}
	context.AfterFunc(ctx, cancel)
	return box.ch, cancel, nil
}

// SubscribeReviews streams review snapshots for one profile.
func (h *Hub) SubscribeReviews(ctx context.Context, profileID string) (<-chan ReviewSnapshot, func(), error) {
	snap, err := h.currentReviews(ctx, profileID)
	if err != nil {
		return nil, nil, err
	}

	box := newMailbox[ReviewSnapshot]()
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	subs := h.reviewSubs[profileID]
	if subs == nil {
		subs = make(map[uint64]*mailbox[ReviewSnapshot])
		h.reviewSubs[profileID] = subs
	}
	subs[id] = box
	if cur := h.reviews[profileID]; cur != nil && cur.Seq > snap.Seq {
		snap = cur
	}
	box.offer(*snap)
	h.mu.Unlock()
	h.reportSubscribers()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.reviewSubs[profileID], id)
			if len(h.reviewSubs[profileID]) == 0 {
				delete(h.reviewSubs, profileID)
				delete(h.reviews, profileID)
			}
			close(box.ch)
			h.mu.Unlock()
			h.reportSubscribers()
		})
	}
	context.AfterFunc(ctx, cancel)
	return box.ch, cancel, nil
}

// Profiles returns the latest profile snapshot, pulling one if none exists.
func (h *Hub) Profiles(ctx context.Context) (*Snapshot, error) {
	return h.currentProfiles(ctx)
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.profileSubs)
	for _, subs := range h.reviewSubs {
		n += len(subs)
	}
	return n
}

func (h *Hub) currentProfiles(ctx context.Context) (*Snapshot, error) {
	h.mu.Lock()
	snap := h.profiles
	h.mu.Unlock()
	if snap != nil {
		return snap, nil
	}
	return h.refreshProfiles(ctx)
}

func (h *Hub) currentReviews(ctx context.Context, profileID string) (*ReviewSnapshot, error) {
	h.mu.Lock()
	snap := h.reviews[profileID]
	h.mu.Unlock()
	if snap != nil {
		return snap, nil
	}
	return h.refreshReviews(ctx, profileID)
}

// refreshProfiles pulls and publishes a profile snapshot. On failure the
// previous snapshot stays in place.
func (h *Hub) refreshProfiles(ctx context.Context) (*Snapshot, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	profiles, err := h.src.ListProfiles(ctx)
	if err != nil {
		metrics.RecordFeedReadError()
		h.logger.Error(ctx, "profile snapshot pull failed, keeping stale snapshot", logger.Error(err))
		return nil, err
	}
	snap := &Snapshot{Seq: h.seq.Add(1), At: h.now(), Profiles: profiles}

	h.mu.Lock()
	h.profiles = snap
	for _, box := range h.profileSubs {
		box.offer(*snap)
	}
	h.mu.Unlock()
	metrics.RecordFeedSnapshot("profiles")
	return snap, nil
}

func (h *Hub) refreshReviews(ctx context.Context, profileID string) (*ReviewSnapshot, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	reviews, err := h.src.ListReviews(ctx, profileID)
	if err != nil {
		metrics.RecordFeedReadError()
		h.logger.Error(ctx, "review snapshot pull failed, keeping stale snapshot",
			logger.String("profile_id", profileID), logger.Error(err))
		return nil, err
	}
	snap := &ReviewSnapshot{Seq: h.seq.Add(1), At: h.now(), ProfileID: profileID, Reviews: reviews}

	h.mu.Lock()
	if subs := h.reviewSubs[profileID]; len(subs) > 0 {
		h.reviews[profileID] = snap
		for _, box := range subs {
			box.offer(*snap)
		}
	}
	h.mu.Unlock()
	metrics.RecordFeedSnapshot("reviews")
	return snap, nil
}

func (h *Hub) profileSubscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.profileSubs)
}

func (h *Hub) hasProfileSnapshot() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profiles != nil
}

func (h *Hub) reviewSubscribers(profileID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reviewSubs[profileID])
}

func (h *Hub) reportSubscribers() {
	metrics.UpdateFeedSubscribers(h.Subscribers())
}

// Package captcha issues and verifies small arithmetic challenges.
package captcha

import (
	"container/list"
	"context"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults.
const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 50_000
	maxOperand      = 10
)

var digitsOnly = regexp.MustCompile(`^\d*$`)

// Challenge is "A + B = ?".
type Challenge struct {
	ID        string    `json:"id"`
	A         int       `json:"a"`
	B         int       `json:"b"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store holds outstanding challenges in memory, bounded by TTL and capacity.
type Store struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	ttl      time.Duration
	capacity int
	now      func() time.Time
	intn     func(n int) int
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithTTL sets how long an issued challenge stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity bounds the number of outstanding challenges; the oldest is dropped first.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand overrides the operand source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(s *Store) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// NewStore creates an empty challenge store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a challenge with both operands uniform in 1..10.
func (s *Store) Issue(_ context.Context) Challenge {
	c := Challenge{
		ID:        uuid.NewString(),
		A:         s.intn(maxOperand) + 1,
		B:         s.intn(maxOperand) + 1,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	for s.order.Len() >= s.capacity {
		s.removeElement(s.order.Front())
	}
	s.items[c.ID] = s.order.PushBack(c)
	return c
}

// Check reports whether input answers challenge id. Input must be all digits.
// The challenge stays valid.
func (s *Store) Check(_ context.Context, id, input string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup(id, input)
	return ok
}

// Redeem is Check that consumes the challenge on success.
func (s *Store) Redeem(_ context.Context, id, input string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.lookup(id, input)
	if ok {
		s.removeElement(el)
	}
	return ok
}

// Len returns the number of outstanding challenges.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Verify reports whether input is the sum of a and b.
func Verify(a, b int, input string) bool {
	if input == "" || !digitsOnly.MatchString(input) {
		return false
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return false
	}
	return n == a+b
}

// lookup must be called with s.mu held.
func (s *Store) lookup(id, input string) (*list.Element, bool) {
	el, ok := s.items[id]
	if !ok {
		return nil, false
	}
	c := el.Value.(Challenge)
	if !s.now().Before(c.ExpiresAt) {
		s.removeElement(el)
		return nil, false
	}
	return el, Verify(c.A, c.B, input)
}

// purgeExpired drops expired challenges from the front. Must hold s.mu.
func (s *Store) purgeExpired() {
	now := s.now()
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		if now.Before(el.Value.(Challenge).ExpiresAt) {
			return
		}
		s.removeElement(el)
	}
}

func (s *Store) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.items, el.Value.(Challenge).ID)
}

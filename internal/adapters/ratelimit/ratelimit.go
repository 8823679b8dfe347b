// Package ratelimit caps review submissions per device in fixed windows.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether one more submission is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Memory is a process-local fixed-window limiter.
type Memory struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]bucket
	sweeps  int
}

type bucket struct {
	count int
	reset time.Time
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory allows max requests per key in every window.
func NewMemory(window time.Duration, max int, opts ...MemoryOption) *Memory {
	if window <= 0 {
		window = time.Hour
	}
	if max <= 0 {
		max = 1
	}
	m := &Memory{
		window:  window,
		max:     max,
		now:     time.Now,
		buckets: make(map[string]bucket),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow counts one request for key. Empty keys are rejected.
func (m *Memory) Allow(ctx context.Context, key string) bool {
	key = normalizeKey(key)
	if key == "" {
		return false
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweeps++
	if m.sweeps%1024 == 0 {
		for k, b := range m.buckets {
			if !now.Before(b.reset) {
				delete(m.buckets, k)
			}
		}
	}

	b := m.buckets[key]
	if !now.Before(b.reset) {
		b = bucket{reset: now.Add(m.window)}
	}
	b.count++
	m.buckets[key] = b
	return b.count <= m.max
}

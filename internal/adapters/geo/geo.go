// Package geo resolves a client IP to a city name for location-aware ranking.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Default locator configuration constants.
const (
	DefaultBaseURL    = "https://ipapi.co"
	defaultTimeout    = 1500 * time.Millisecond
	defaultCacheTTL   = time.Hour
	defaultFailureTTL = time.Minute
	maxCacheEntries   = 10_000
)

// Lookup outcomes reported to metrics.
const (
	outcomeHit   = "cache_hit"
	outcomeOK    = "ok"
	outcomeError = "error"
)

type entry struct {
	city    string
	expires time.Time
}

// Locator looks cities up from an ipapi-style JSON endpoint. Every failure
// resolves to the empty string, and is remembered for the failure TTL.
type Locator struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	failTTL time.Duration
	now     func() time.Time
	logger  logger.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]entry
}

// Option configures a Locator.
type Option func(*Locator)

// WithBaseURL overrides the lookup endpoint.
func WithBaseURL(u string) Option {
	return func(l *Locator) {
		if u != "" {
			l.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.client.Timeout = d
		}
	}
}

// WithCacheTTL sets how long resolved cities are reused.
func WithCacheTTL(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithFailureTTL sets how long a failed lookup resolves to the empty city
// without asking the endpoint again.
func WithFailureTTL(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.failTTL = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Locator) {
		if c != nil {
			l.client = c
		}
	}
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Locator) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the locator logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Locator) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLocator creates a Locator.
func NewLocator(opts ...Option) *Locator {
	l := &Locator{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		ttl:     defaultCacheTTL,
		failTTL: defaultFailureTTL,
		now:     time.Now,
		logger:  logger.NewNop(),
		cache:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// City returns the city for ip. Concurrent lookups of the same ip share one
// request. Private, loopback and empty addresses ask the endpoint about the
// server's own address.
func (l *Locator) City(ctx context.Context, ip string) string {
	key := lookupKey(ip)

	if city, ok := l.cached(key); ok {
		metrics.RecordGeoLookup(outcomeHit)
		return city
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		city, err := l.fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			l.store(key, "", l.failTTL)
			return "", err
		}
		l.store(key, city, l.ttl)
		return city, nil
	})
	if err != nil {
		metrics.RecordGeoLookup(outcomeError)
		l.logger.Debug(ctx, "geo lookup failed", logger.String("ip", key), logger.Error(err))
		return ""
	}
	metrics.RecordGeoLookup(outcomeOK)
	return v.(string)
}

func (l *Locator) fetch(ctx context.Context, key string) (string, error) {
	url := l.baseURL + "/json/"
	if key != "" {
		url = l.baseURL + "/" + key + "/json/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		City   string `json:"city"`
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geo lookup: decode: %w", err)
	}
	if body.Error {
		return "", fmt.Errorf("geo lookup: %s", body.Reason)
	}
	return strings.TrimSpace(body.City), nil
}

func (l *Locator) cached(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.cache[key]
	if !ok || !l.now().Before(e.expires) {
		return "", false
	}
	return e.city, true
}

func (l *Locator) store(key, city string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.cache) >= maxCacheEntries {
		for k, e := range l.cache {
			if !now.Before(e.expires) {
				delete(l.cache, k)
			}
		}
		if len(l.cache) >= maxCacheEntries {
			l.cache = make(map[string]entry)
		}
	}
	l.cache[key] = entry{city: city, expires: now.Add(ttl)}
}

// lookupKey returns the public address to ask about, or "" for the caller's
// own address.
func lookupKey(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return ""
	}
	return parsed.String()
}

// ClientIP extracts the caller address from X-Forwarded-For, X-Real-IP or the
// connection.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return strings.TrimSpace(xr)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const (
	defaultPrefix  = "scoop:rl:submit:"
	redisCallLimit = 500 * time.Millisecond
)

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis is a fixed-window limiter shared by every instance.
// Redis errors fail open.
type Redis struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedis allows max requests per key in every window.
func NewRedis(client *redis.Client, window time.Duration, max int) *Redis {
	return newRedis(client, window, max)
}

func newRedis(client redisEvaler, window time.Duration, max int) *Redis {
	if window <= 0 {
		window = time.Hour
	}
	if max <= 0 {
		max = 1
	}
	return &Redis{client: client, window: window, max: max, prefix: defaultPrefix}
}

// Allow counts one request for key.
func (l *Redis) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = normalizeKey(key)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallLimit)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

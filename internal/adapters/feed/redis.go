package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel changes are broadcast on.
const DefaultChannel = "scoop:changes"

// publisher is the part of *redis.Client used to broadcast changes.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// subscriber is the part of *redis.Client used to receive broadcasts.
type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisNotifier broadcasts changes to every instance through Redis pub/sub.
// Changes received from Redis are fed into a LocalNotifier, so coalescing
// works the same way as in a single process.
type RedisNotifier struct {
	pub     publisher
	sub     subscriber
	channel string
	local   *LocalNotifier
	logger  logger.Logger
}

// RedisOption configures a RedisNotifier.
type RedisOption func(*RedisNotifier)

// WithChannel overrides the pub/sub channel.
func WithChannel(ch string) RedisOption {
	return func(r *RedisNotifier) {
		if ch != "" {
			r.channel = ch
		}
	}
}

// WithRedisLogger sets the notifier logger.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(r *RedisNotifier) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRedisNotifier creates a notifier on client.
func NewRedisNotifier(client *redis.Client, opts ...RedisOption) *RedisNotifier {
	return newRedisNotifier(client, client, opts...)
}

func newRedisNotifier(pub publisher, sub subscriber, opts ...RedisOption) *RedisNotifier {
	r := &RedisNotifier{
		pub:     pub,
		sub:     sub,
		channel: DefaultChannel,
		local:   NewLocalNotifier(),
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notify publishes c. When Redis is unreachable the change is still delivered
// to this instance and the publish error is returned.
func (r *RedisNotifier) Notify(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn(ctx, "publish change failed, delivering locally",
			logger.String("channel", r.channel),
			logger.Error(err))
		if lerr := r.local.Notify(ctx, c); lerr != nil {
			return lerr
		}
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Changes subscribes to the channel and streams decoded changes.
func (r *RedisNotifier) Changes(ctx context.Context) <-chan Change {
	ps := r.sub.Subscribe(ctx, r.channel)
	msgs := ps.Channel()
	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.local.done:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				c, err := decodeChange(m.Payload)
				if err != nil {
					r.logger.Warn(ctx, "dropping malformed change", logger.Error(err))
					continue
				}
				_ = r.local.Notify(ctx, c)
			}
		}
	}()
	return r.local.Changes(ctx)
}

// Close stops delivery. The Redis client is owned by the caller.
func (r *RedisNotifier) Close() error {
	return r.local.Close()
}

func decodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if c.ProfileID == "" {
		return Change{}, fmt.Errorf("decode change: missing profile_id")
	}
	return c, nil
}

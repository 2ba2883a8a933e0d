package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used to broadcast invalidations.
const DefaultChannel = "forgeadmin:" + Key

// RedisInvalidator propagates cache invalidations between processes over Redis pub/sub.
type RedisInvalidator struct {
	client  redis.UniversalClient
	channel string
	target  Invalidator
	logger  *slog.Logger
}

// NewRedisInvalidator returns an invalidator that drops target on every message
// published to channel. An empty channel selects DefaultChannel.
func NewRedisInvalidator(client redis.UniversalClient, channel string, target Invalidator, logger *slog.Logger) (*RedisInvalidator, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if target == nil {
		return nil, fmt.Errorf("invalidation target is required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisInvalidator{client: client, channel: channel, target: target, logger: logger}, nil
}

// Channel returns the pub/sub channel name.
func (r *RedisInvalidator) Channel() string {
	return r.channel
}

// Publish broadcasts an invalidation to every listener, including this process.
func (r *RedisInvalidator) Publish(ctx context.Context) error {
	if err := r.client.Publish(ctx, r.channel, Key).Err(); err != nil {
		return fmt.Errorf("failed to publish cache invalidation: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and invalidates the target for each message
// until the returned stop function is called. It returns once the subscription is confirmed.
func (r *RedisInvalidator) Listen(ctx context.Context) (stop func() error, err error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range pubsub.Channel() {
			r.logger.Debug("Metadata cache invalidated by broadcast", "channel", msg.Channel, "payload", msg.Payload)
			r.target.Invalidate()
		}
	}()

	var once sync.Once
	return func() error {
		var closeErr error
		once.Do(func() {
			closeErr = pubsub.Close()
			wg.Wait()
		})
		return closeErr
	}, nil
}

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
)

// DefaultRedisChannel prefixes the per-session pub/sub channel.
const DefaultRedisChannel = "profilegen:progress"

const publishTimeout = 2 * time.Second

// RedisClient is the subset of *redis.Client used for publishing.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher publishes progress messages on "<prefix>:<session id>".
type RedisPublisher struct {
	client RedisClient
	prefix string
	logger *zap.Logger
}

// NewRedisPublisher creates a RedisPublisher. An empty prefix means
// DefaultRedisChannel.
func NewRedisPublisher(client RedisClient, prefix string, logger *zap.Logger) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultRedisChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// Channel returns the channel used for session id.
func (p *RedisPublisher) Channel(id string) string {
	return p.prefix + ":" + id
}

// ForSession returns a Publisher bound to session id. Publish failures are
// logged and never reach the run.
func (p *RedisPublisher) ForSession(id string) orchestrator.Publisher {
	return orchestrator.PublisherFunc(func(ev orchestrator.ProgressEvent) {
		data, err := encode(id, ev)
		if err != nil {
			p.logger.Warn("encode progress message", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.Publish(ctx, p.Channel(id), data).Err(); err != nil {
			p.logger.Warn("redis publish failed",
				zap.String("channel", p.Channel(id)),
				zap.Error(err))
		}
	})
}

// DialRedis connects to url, which may be a redis:// URL or a bare
// host:port.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("notify: connect redis %s: %w", opt.Addr, err)
	}
	return rdb, nil
}

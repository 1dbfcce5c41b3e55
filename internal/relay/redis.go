package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

// RedisRelay fans events out over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string

	mu sync.Mutex
	ps *redis.PubSub
}

var _ pubsub.Relay = (*RedisRelay)(nil)

func NewRedisRelay(ctx context.Context, url, channel string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	log.Info("Connected to Redis relay at %s", opts.Addr)
	return &RedisRelay{client: client, channel: channel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, e *pubsub.Event) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Start subscribes to the channel and delivers events until ctx is done.
func (r *RedisRelay) Start(ctx context.Context, deliver func(*pubsub.Event)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	r.mu.Lock()
	r.ps = ps
	r.mu.Unlock()

	go func() {
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				ps.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if e, ok := decode([]byte(msg.Payload)); ok {
					deliver(e)
				}
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	r.mu.Lock()
	if r.ps != nil {
		r.ps.Close()
	}
	r.mu.Unlock()
	return r.client.Close()
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const ChannelPrefix = "servicehub:changes:"

// RedisPublisher forwards changes to redis pub/sub so every instance's hub sees them.
// When redis rejects a publish the change is handed to fallback so local subscribers still get it.
type RedisPublisher struct {
	client   *redis.Client
	fallback Publisher
	timeout  time.Duration
	logger   *zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, fallback Publisher, logger *zerolog.Logger) *RedisPublisher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisPublisher{
		client:   client,
		fallback: fallback,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

func (p *RedisPublisher) Publish(change Change) {
	if err := p.publish(change); err != nil {
		p.logger.Error().Err(err).Str("collection", change.Collection).Str("key", change.Key).Msg("redis publish failed")
		if p.fallback != nil {
			p.fallback.Publish(change)
		}
	}
}

func (p *RedisPublisher) publish(change Change) error {
	if p.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, ChannelPrefix+change.Collection, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// RedisListener re-injects changes from redis pub/sub into a local hub.
type RedisListener struct {
	client *redis.Client
	hub    *Hub
	logger *zerolog.Logger
}

func NewRedisListener(client *redis.Client, hub *Hub, logger *zerolog.Logger) *RedisListener {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisListener{client: client, hub: hub, logger: logger}
}

// Listen subscribes to every change channel and returns once the subscription is confirmed.
// Changes are forwarded until ctx is done or the returned stop func is called.
func (l *RedisListener) Listen(ctx context.Context) (func(), error) {
	if l.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	ps := l.client.PSubscribe(ctx, ChannelPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer ps.Close()
		l.forward(ctx, ps.Channel())
	}()

	stop := func() {
		cancel()
		<-finished
	}
	return stop, nil
}

func (l *RedisListener) forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				l.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("decode change")
				continue
			}
			if change.Collection == "" {
				change.Collection = strings.TrimPrefix(msg.Channel, ChannelPrefix)
			}
			l.hub.Publish(change)
		}
	}
}

package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

type RedisSubscriber struct {
	client *redis.Client
}

func NewRedisSubscriber(client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

// Subscribe returns once the server has confirmed the subscription.
func (s *RedisSubscriber) Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, event models.Event)) (analytics.Subscription, error) {
	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	sub := &redisSubscription{pubsub: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			if ctx.Err() != nil {
				return
			}
			handler(ctx, decodePayload(msg.Channel, []byte(msg.Payload)))
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	logger.Component("push").WithField("channel", channel).Info("redis subscription started")
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

// Unsubscribe closes the pub/sub connection, which ends the delivery loop.
func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
	})
	<-s.done
	return s.err
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.channel, err)
	}
	logger.Component("push").WithFields(map[string]interface{}{
		"event_id": event.ID,
		"channel":  p.channel,
	}).Info("Event published successfully")
	return nil
}

// Close is a no-op; the shared client is closed by database.CloseRedis.
func (p *RedisPublisher) Close() error { return nil }

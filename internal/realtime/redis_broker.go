package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aditya/rideshare/internal/metrics"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime:"

type envelope struct {
	Topic   string  `json:"topic"`
	Message Message `json:"message"`
}

// RedisBroker relays frames through Redis pub/sub so every instance sees every
// topic. Local subscribers are served by an embedded Hub.
type RedisBroker struct {
	hub   *Hub
	redis *redis.Client
	log   *logger.Logger
	ready chan struct{}
}

func NewRedisBroker(redisClient *redis.Client, hub *Hub, log *logger.Logger) *RedisBroker {
	return &RedisBroker{
		hub:   hub,
		redis: redisClient,
		log:   log,
		ready: make(chan struct{}),
	}
}

func (b *RedisBroker) Subscribe(topic string) *Subscription {
	return b.hub.Subscribe(topic)
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg Message) error {
	data, err := json.Marshal(envelope{Topic: topic, Message: msg})
	if err != nil {
		return err
	}
	if err := b.redis.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		return err
	}
	metrics.RealtimeMessages.WithLabelValues("published").Inc()
	return nil
}

// Ready is closed once the Redis subscription is confirmed.
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

// Run relays Redis messages to local subscribers until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.redis.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	close(b.ready)
	b.log.Info("realtime redis relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				b.log.WithError(err).WithField("channel", m.Channel).Warn("dropping malformed realtime envelope")
				continue
			}
			if env.Topic == "" {
				env.Topic = strings.TrimPrefix(m.Channel, channelPrefix)
			}
			b.hub.deliver(env.Topic, env.Message)
		}
	}
}

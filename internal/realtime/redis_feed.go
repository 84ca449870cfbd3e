package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/Prototype-1/UserDirectory/internal/metrics"
	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis creates a new Redis client
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// RedisFeed carries change events over Redis Pub/Sub, one channel per table.
type RedisFeed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisFeed(rdb *redis.Client, logger *zap.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, table model.Table, op string) error {
	if err := f.rdb.Publish(ctx, ChannelName(table), op).Err(); err != nil {
		return fmt.Errorf("publish %s change: %w", table, err)
	}
	return nil
}

// Subscribe returns once Redis has acknowledged the subscription, so no event
// published after it returns is missed.
func (f *RedisFeed) Subscribe(ctx context.Context, table model.Table, h Handler) (Subscription, error) {
	pubsub := f.rdb.Subscribe(ctx, ChannelName(table))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChannelName(table), err)
	}

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	ch := pubsub.Channel()

	go func() {
		defer close(sub.done)
		for msg := range ch {
			metrics.NotificationsReceived.WithLabelValues(string(table)).Inc()
			safeCall(f.logger, h, Event{Table: table, Op: msg.Payload})
		}
	}()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

// Close unsubscribes and waits for the delivery goroutine to exit.
func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
		<-s.done
	})
	return s.err
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus fans events out to every instance through a Redis pub/sub channel.
// Each instance subscribes and forwards into its own hub, so a receiver
// connected anywhere gets the event.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBus creates a bus on an already connected client
func NewRedisBus(rdb *redis.Client, channel string, logger zerolog.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if channel == "" {
		return nil, errors.New("redis channel required")
	}
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With().Str("component", "redis_bus").Logger(),
	}, nil
}

// Publish sends e to every subscribed instance
func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Start subscribes and forwards events until ctx is done
func (b *RedisBus) Start(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
					b.logger.Warn().Err(err).Msg("Bad chat event payload")
					continue
				}
				onEvent(e)
			}
		}
	}()

	b.logger.Info().Str("channel", b.channel).Msg("Subscribed to chat event channel")
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (b *RedisBus) Close() error {
	return nil
}

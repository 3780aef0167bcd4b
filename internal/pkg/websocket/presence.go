package websocket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence records which users have a live connection on some instance
type Presence interface {
	Touch(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

const presenceKeyPrefix = "presence:user:"

// PresenceKey is the Redis key holding a user's presence marker
func PresenceKey(userID int64) string {
	return presenceKeyPrefix + strconv.FormatInt(userID, 10)
}

// RedisPresence keeps a TTL key per online user. Connections refresh it on
// join and on every pong, so a crashed instance's users expire on their own.
type RedisPresence struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPresence creates a presence store with the given key TTL
func NewRedisPresence(rdb *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{rdb: rdb, ttl: ttl}
}

// Touch marks the user online for another TTL
func (p *RedisPresence) Touch(ctx context.Context, userID int64) error {
	if err := p.rdb.Set(ctx, PresenceKey(userID), time.Now().Unix(), p.ttl).Err(); err != nil {
		return fmt.Errorf("presence touch: %w", err)
	}
	return nil
}

// Remove clears the marker
func (p *RedisPresence) Remove(ctx context.Context, userID int64) error {
	if err := p.rdb.Del(ctx, PresenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	return nil
}

// IsOnline reports whether the marker exists
func (p *RedisPresence) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := p.rdb.Exists(ctx, PresenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

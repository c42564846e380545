// Package cache wraps redis: shared counters read by the website,
// leaderboard ranks, and the pub/sub bus the web frontend uses to
// reach the live server.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Well-known keys shared with the web frontend.
const (
	keyOnlineUsers    = "ripple:online_users"
	keyUsernameChange = "ripple:change_username_pending:"
	keyLeaderboard    = "ripple:leaderboard:"
)

// modeNames maps a game mode to its leaderboard key segment.
var modeNames = [4]string{"std", "taiko", "ctb", "mania"}

// Cache is the shared redis handle.
type Cache struct {
	rdb *redis.Client
}

// New wraps an existing redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Open connects to redis and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return New(rdb), nil
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// SetOnlineCount publishes the session count for the website.
func (c *Cache) SetOnlineCount(ctx context.Context, n int) error {
	if err := c.rdb.Set(ctx, keyOnlineUsers, n, 0).Err(); err != nil {
		return fmt.Errorf("setting online count: %w", err)
	}
	return nil
}

// GameRank returns the user's 1-based global rank for the mode, 0 when
// the user is not on the leaderboard.
func (c *Cache) GameRank(ctx context.Context, userID int32, mode uint8) (int32, error) {
	if int(mode) >= len(modeNames) {
		mode = 0
	}
	key := keyLeaderboard + modeNames[mode]
	rank, err := c.rdb.ZRevRank(ctx, key, strconv.Itoa(int(userID))).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading rank for user %d: %w", userID, err)
	}
	return int32(rank) + 1, nil
}

// PendingUsernameChange returns the new name waiting for the user to
// log out, "" when none is queued.
func (c *Cache) PendingUsernameChange(ctx context.Context, userID int32) (string, error) {
	v, err := c.rdb.Get(ctx, keyUsernameChange+strconv.Itoa(int(userID))).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading pending username change: %w", err)
	}
	return v, nil
}

// Publish sends a message on the pub/sub bus.
func (c *Cache) Publish(ctx context.Context, channel, payload string) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription on the given channels.
// The caller owns the returned subscription and must Close it.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

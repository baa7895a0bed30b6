package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"timehunt/internal/model"
)

const leaderboardKey = "timehunt:leaderboard"

// NewRedisClient returns a client for addr, or nil when addr is empty.
// The ping result is returned so the caller can log it; the client stays usable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client, client.Ping(pingCtx).Err()
}

// LeaderboardCache keeps the computed top list in Redis. A cache built on a
// nil client is disabled: reads miss and writes are no-ops.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached entries and whether there was a hit.
func (c *LeaderboardCache) Get(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get leaderboard: %w", err)
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// stale format, treat as a miss
		return nil, false, nil
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []model.LeaderboardEntry) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, leaderboardKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set leaderboard: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("invalidate leaderboard: %w", err)
	}
	return nil
}

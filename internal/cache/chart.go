// Package cache provides an optional Redis-backed cache for chart-of-accounts
// lists. A nil *Chart is valid and behaves as a permanent miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tinoosan/cashflow/internal/ledger"
)

// DefaultTTL bounds how stale a cached chart can be.
const DefaultTTL = 10 * time.Minute

// Chart caches one chart-of-accounts list per user.
type Chart struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// Connect returns a cache for addr, or nil when addr is empty or unreachable.
func Connect(ctx context.Context, addr string, logger *slog.Logger) *Chart {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, chart cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable, chart cache disabled", "addr", addr, "err", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("chart cache connected", "addr", addr)
	return New(rdb, DefaultTTL, logger)
}

// New wraps an existing client.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Chart {
	return &Chart{rdb: rdb, ttl: ttl, log: logger}
}

func key(userID uuid.UUID) string { return "cashflow:chart:" + userID.String() }

// GetChart returns the cached list. Redis errors count as a miss.
func (c *Chart) GetChart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("chart cache get failed", "user_id", userID, "err", err)
		}
		return nil, false
	}
	var out []ledger.ChartAccount
	if err := json.Unmarshal(b, &out); err != nil {
		c.log.Warn("chart cache entry unreadable", "user_id", userID, "err", err)
		return nil, false
	}
	return out, true
}

// PutChart stores the list; failures are logged and ignored.
func (c *Chart) PutChart(ctx context.Context, userID uuid.UUID, chart []ledger.ChartAccount) {
	if c == nil {
		return
	}
	b, err := json.Marshal(chart)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(userID), b, c.ttl).Err(); err != nil {
		c.log.Warn("chart cache set failed", "user_id", userID, "err", err)
	}
}

// Invalidate drops the user's cached list after a chart write.
func (c *Chart) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		c.log.Warn("chart cache invalidate failed", "user_id", userID, "err", err)
	}
}

// Close releases the client.
func (c *Chart) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

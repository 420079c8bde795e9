// Package cache keeps computed reports in Redis so repeat dashboard reads do
// not hit the warehouse.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/region-insights/internal/service/report"
)

// ReportCache implements report.Cache on Redis.
type ReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewReportCache wraps an existing client.
func NewReportCache(client *redis.Client, prefix string, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses redisURL and checks the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[Cache] Connected to Redis at %s", opts.Addr)
	return client, nil
}

func (c *ReportCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get returns (nil, nil) on a miss.
func (c *ReportCache) Get(ctx context.Context, key string) (*report.Report, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		// A stale encoding is treated as a miss and overwritten later.
		_ = c.client.Del(ctx, c.key(key)).Err()
		return nil, nil
	}
	return &r, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

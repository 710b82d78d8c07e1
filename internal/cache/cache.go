// Package cache memoizes computed balance reports. Entries are keyed by group
// and version token, so a stale entry is never served: any new record changes
// the version and the old key simply expires.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitledger/internal/calculator"
)

const keyPrefix = "ledger:report:"

// ReportCache stores reports by (groupID, version).
type ReportCache interface {
	// Get returns the cached report and true on a hit.
	Get(ctx context.Context, groupID, version string) (*calculator.Report, bool, error)
	Set(ctx context.Context, groupID, version string, report *calculator.Report) error
}

// RedisCache is a ReportCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(groupID, version string) string {
	return keyPrefix + groupID + ":" + version
}

// Get reads and decodes a cached report. A missing key is a miss, not an
// error.
func (c *RedisCache) Get(ctx context.Context, groupID, version string) (*calculator.Report, bool, error) {
	val, err := c.client.Get(ctx, key(groupID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report calculator.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, true, nil
}

// Set stores report as JSON under the version key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, groupID, version string, report *calculator.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, key(groupID, version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// NopCache never stores anything. It is used when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) (*calculator.Report, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, string, string, *calculator.Report) error {
	return nil
}

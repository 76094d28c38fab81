package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"atlaspos/backend/internal/domain"
)

type RedisSummaryCache struct {
	client *redis.Client
}

func NewRedisSummaryCache(addr string, password string, db int) *RedisSummaryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSummaryCache{client: client}
}

func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

func summaryKey(tenantID string) string {
	return "ledger:summary:" + tenantID
}

func (c *RedisSummaryCache) Get(ctx context.Context, tenantID string) (*domain.LedgerSummary, bool, error) {
	val, err := c.client.Get(ctx, summaryKey(tenantID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.LedgerSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, tenantID string, value *domain.LedgerSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(tenantID), payload, ttl).Err()
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.client.Del(ctx, summaryKey(tenantID)).Err()
}

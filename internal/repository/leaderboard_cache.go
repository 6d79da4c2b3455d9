package repository

import (
	"context"
	"errors"
	"fmt"
	"learning_progress/internal/model"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// LeaderboardCache 把榜单查询结果缓存在 redis hash 中：
// key 为桶，field 为 limit。客户端为 nil 时所有操作都是空操作。
type LeaderboardCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{Client: client, TTL: ttl}
}

func bucketKey(period model.LeaderboardPeriod, periodStart string) string {
	return fmt.Sprintf("leaderboard:cache:%s:%s", period, periodStart)
}

func (c *LeaderboardCache) Enabled() bool {
	return c != nil && c.Client != nil
}

// Get 未命中时返回 nil, nil
func (c *LeaderboardCache) Get(ctx context.Context, period model.LeaderboardPeriod, periodStart string, limit int) ([]byte, error) {
	if !c.Enabled() {
		return nil, nil
	}
	data, err := c.Client.HGet(ctx, bucketKey(period, periodStart), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (c *LeaderboardCache) Set(ctx context.Context, period model.LeaderboardPeriod, periodStart string, limit int, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	key := bucketKey(period, periodStart)
	pipe := c.Client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, c.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate 加分后清掉整个桶的缓存
func (c *LeaderboardCache) Invalidate(ctx context.Context, period model.LeaderboardPeriod, periodStart string) error {
	if !c.Enabled() {
		return nil
	}
	return c.Client.Del(ctx, bucketKey(period, periodStart)).Err()
}

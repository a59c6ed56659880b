package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/coursework-engine/internal/dto"
)

// LeaderboardCache stores rendered leaderboard views per course.
type LeaderboardCache interface {
	Get(ctx context.Context, courseID uint) (dto.LeaderboardResponse, bool, error)
	Set(ctx context.Context, courseID uint, view dto.LeaderboardResponse) error
	Invalidate(ctx context.Context, courseID uint) error
}

type redisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLeaderboardCache returns a cache backed by Redis. A nil client
// yields a cache that never hits.
func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) LeaderboardCache {
	if client == nil {
		return noopLeaderboardCache{}
	}
	return &redisLeaderboardCache{client: client, ttl: ttl}
}

func leaderboardCacheKey(courseID uint) string {
	return fmt.Sprintf("leaderboard:course:%d", courseID)
}

func (c *redisLeaderboardCache) Get(ctx context.Context, courseID uint) (dto.LeaderboardResponse, bool, error) {
	raw, err := c.client.Get(ctx, leaderboardCacheKey(courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dto.LeaderboardResponse{}, false, nil
	}
	if err != nil {
		return dto.LeaderboardResponse{}, false, err
	}

	var view dto.LeaderboardResponse
	if err := json.Unmarshal(raw, &view); err != nil {
		return dto.LeaderboardResponse{}, false, err
	}
	return view, true, nil
}

func (c *redisLeaderboardCache) Set(ctx context.Context, courseID uint, view dto.LeaderboardResponse) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardCacheKey(courseID), payload, c.ttl).Err()
}

func (c *redisLeaderboardCache) Invalidate(ctx context.Context, courseID uint) error {
	return c.client.Del(ctx, leaderboardCacheKey(courseID)).Err()
}

type noopLeaderboardCache struct{}

func (noopLeaderboardCache) Get(context.Context, uint) (dto.LeaderboardResponse, bool, error) {
	return dto.LeaderboardResponse{}, false, nil
}

func (noopLeaderboardCache) Set(context.Context, uint, dto.LeaderboardResponse) error {
	return nil
}

func (noopLeaderboardCache) Invalidate(context.Context, uint) error {
	return nil
}

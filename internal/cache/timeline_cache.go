package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"warbler/internal/model"
)

// TimelineCache keeps the recent-messages timeline in Redis. A short-lived
// dirty marker set on every write keeps a stale timeline from being re-cached
// while the underlying message set is changing.
type TimelineCache struct {
	client         *redisv9.Client
	timelineTTL    time.Duration
	dirtyMarkerTTL time.Duration
}

func NewTimelineCache(client *redisv9.Client, timelineTTL, dirtyMarkerTTL time.Duration) *TimelineCache {
	if timelineTTL <= 0 {
		timelineTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &TimelineCache{
		client:         client,
		timelineTTL:    timelineTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *TimelineCache) GetRecent(ctx context.Context) ([]model.Message, bool, error) {
	raw, err := c.client.Get(ctx, c.timelineKey()).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get timeline failed: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached timeline failed: %w", err)
	}
	return messages, true, nil
}

func (c *TimelineCache) SetRecent(ctx context.Context, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal timeline cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.timelineKey(), payload, c.timelineTTL).Err(); err != nil {
		return fmt.Errorf("redis set timeline failed: %w", err)
	}
	return nil
}

func (c *TimelineCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.timelineKey()).Err(); err != nil {
		return fmt.Errorf("redis delete timeline failed: %w", err)
	}
	return nil
}

func (c *TimelineCache) MarkDirty(ctx context.Context) error {
	if err := c.client.Set(ctx, c.dirtyKey(), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *TimelineCache) IsDirty(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey()).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *TimelineCache) timelineKey() string {
	return "timeline:recent"
}

func (c *TimelineCache) dirtyKey() string {
	return "timeline:recent:dirty"
}

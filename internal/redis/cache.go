package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling/internal/schedule"
)

// availabilityCache memoizes generated slot lists in Redis, one key per
// (doctor, day, duration). Writes through the scheduling service invalidate
// the whole (doctor, day) family; the TTL is only a safety net against missed
// invalidations, never the primary freshness mechanism.
type availabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache creates a schedule.AvailabilityCache backed by Redis.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) schedule.AvailabilityCache {
	return &availabilityCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(doctorID uuid.UUID, day time.Time, duration time.Duration) string {
	return fmt.Sprintf("%s:%d", cacheKeyPrefix(doctorID, day), int(duration/time.Minute))
}

func cacheKeyPrefix(doctorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("avail:%s:%s", doctorID.String(), schedule.DayOf(day).Format("2006-01-02"))
}

func (c *availabilityCache) Get(ctx context.Context, doctorID uuid.UUID, day time.Time, duration time.Duration) ([]time.Time, bool) {
	raw, err := c.client.Get(ctx, cacheKey(doctorID, day, duration)).Bytes()
	if err != nil {
		// redis.Nil and infrastructure errors alike degrade to a miss.
		return nil, false
	}

	var starts []time.Time
	if err := json.Unmarshal(raw, &starts); err != nil {
		return nil, false
	}
	return starts, true
}

func (c *availabilityCache) Set(ctx context.Context, doctorID uuid.UUID, day time.Time, duration time.Duration, starts []time.Time) {
	if starts == nil {
		starts = []time.Time{}
	}
	raw, err := json.Marshal(starts)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(doctorID, day, duration), raw, c.ttl).Err()
}

func (c *availabilityCache) Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time) {
	pattern := cacheKeyPrefix(doctorID, day) + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = c.client.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

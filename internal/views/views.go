package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// Key pattern for per-video counters.
const viewCountKey = "views:%s" // views:reference

// Counter tracks per-video view counts in Redis. The counters are cache-only;
// losing them on a cache restart is accepted.
type Counter struct {
	redis *redis.Client
}

// NewCounter creates a view counter backed by the given Redis client.
func NewCounter(redisClient *redis.Client) *Counter {
	return &Counter{redis: redisClient}
}

// Increment adds one view to the counter for a reference.
func (c *Counter) Increment(ctx context.Context, reference string) error {
	key := fmt.Sprintf(viewCountKey, reference)

	if err := c.redis.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// Get returns the current count for a reference, 0 when absent.
func (c *Counter) Get(ctx context.Context, reference string) (int64, error) {
	key := fmt.Sprintf(viewCountKey, reference)

	count, err := c.redis.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get view count: %w", err)
	}

	return count, nil
}

// GetMany returns the counts for a set of references in one round trip.
// References absent from the cache map to 0, never to a missing entry.
func (c *Counter) GetMany(ctx context.Context, references []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(references))
	if len(references) == 0 {
		return counts, nil
	}

	keys := make([]string, len(references))
	for i, reference := range references {
		keys[i] = fmt.Sprintf(viewCountKey, reference)
	}

	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get view counts: %w", err)
	}

	for i, reference := range references {
		counts[reference] = 0

		raw, ok := values[i].(string)
		if !ok {
			continue
		}

		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counts[reference] = count
	}

	return counts, nil
}

// Delete removes the counter for a reference, used when the video record
// itself is deleted.
func (c *Counter) Delete(ctx context.Context, reference string) error {
	key := fmt.Sprintf(viewCountKey, reference)

	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete view count: %w", err)
	}
	return nil
}

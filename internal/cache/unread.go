package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// UnreadCachePrefix is the key prefix for per-user unread counts
	UnreadCachePrefix = "unread:user:"

	// UnreadCacheTTL bounds staleness if an invalidation is ever missed
	UnreadCacheTTL = time.Hour
)

// UnreadCache caches per-user unread notification counts for badge display.
// It is a read-through cache: the notification service falls back to a COUNT
// query on a miss and invalidates entries on every write (new notification,
// mark-as-read). Using an interface enables testing with mocks.
type UnreadCache interface {
	// Get returns (count, found, error). found=false on a cache miss.
	Get(ctx context.Context, userID int64) (int, bool, error)

	// Set stores the unread count with a TTL.
	Set(ctx context.Context, userID int64, count int) error

	// Invalidate drops cached counts for the given users.
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// RedisUnreadCache implements UnreadCache on plain Redis strings.
type RedisUnreadCache struct {
	client *redis.Client
}

func NewRedisUnreadCache(client *redis.Client) *RedisUnreadCache {
	return &RedisUnreadCache{client: client}
}

func unreadKey(userID int64) string {
	return UnreadCachePrefix + strconv.FormatInt(userID, 10)
}

func (c *RedisUnreadCache) Get(ctx context.Context, userID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, unreadKey(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread count: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		// Corrupt entry; treat as a miss so it gets rewritten.
		return 0, false, nil
	}
	return count, true, nil
}

func (c *RedisUnreadCache) Set(ctx context.Context, userID int64, count int) error {
	err := c.client.Set(ctx, unreadKey(userID), strconv.Itoa(count), UnreadCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("set unread count: %w", err)
	}
	return nil
}

func (c *RedisUnreadCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread counts: %w", err)
	}
	return nil
}

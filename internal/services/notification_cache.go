package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"datekeeper/internal/models"

	"github.com/go-redis/redis/v8"
)

// NotificationCache remembers the last day each user was notified.
type NotificationCache interface {
	LastNotified(ctx context.Context, userID string) (time.Time, bool, error)
	MarkNotified(ctx context.Context, userID string, day time.Time) error
}

// MemoryNotificationCache is the default cache. It starts empty on every
// process start.
type MemoryNotificationCache struct {
	mu   sync.RWMutex
	days map[string]time.Time
}

func NewMemoryNotificationCache() *MemoryNotificationCache {
	return &MemoryNotificationCache{days: make(map[string]time.Time)}
}

func (c *MemoryNotificationCache) LastNotified(_ context.Context, userID string) (time.Time, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	day, ok := c.days[userID]
	return day, ok, nil
}

func (c *MemoryNotificationCache) MarkNotified(_ context.Context, userID string, day time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[userID] = models.Day(day)
	return nil
}

const (
	notifiedKeyPrefix = "datekeeper:notified:"
	notifiedDayLayout = "2006-01-02"
	// Entries older than a week no longer suppress anything.
	notifiedTTL = 8 * 24 * time.Hour
)

// RedisNotificationCache keeps the last-notified days in Redis so they
// survive restarts.
type RedisNotificationCache struct {
	client *redis.Client
}

// NewRedisNotificationCache connects to Redis and verifies the connection.
func NewRedisNotificationCache(ctx context.Context, addr, password string, db int) (*RedisNotificationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisNotificationCache{client: client}, nil
}

func notifiedKey(userID string) string {
	return notifiedKeyPrefix + userID
}

func (c *RedisNotificationCache) LastNotified(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := c.client.Get(ctx, notifiedKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get %s: %w", userID, err)
	}
	day, err := time.ParseInLocation(notifiedDayLayout, val, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse notified day %q: %w", val, err)
	}
	return day, true, nil
}

func (c *RedisNotificationCache) MarkNotified(ctx context.Context, userID string, day time.Time) error {
	val := models.Day(day).Format(notifiedDayLayout)
	if err := c.client.Set(ctx, notifiedKey(userID), val, notifiedTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", userID, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisNotificationCache) Close() error {
	return c.client.Close()
}

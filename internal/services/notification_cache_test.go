package services_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"datekeeper/internal/services"

	"github.com/alicebob/miniredis/v2"
)

func exerciseCache(t *testing.T, cache services.NotificationCache, user string) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := cache.LastNotified(ctx, user); err != nil || ok {
		t.Fatalf("LastNotified() on empty cache = %v, %v", ok, err)
	}

	evening := time.Date(2026, 3, 10, 20, 15, 0, 0, time.UTC)
	if err := cache.MarkNotified(ctx, user, evening); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	day, ok, err := cache.LastNotified(ctx, user)
	if err != nil || !ok {
		t.Fatalf("LastNotified() = %v, %v", ok, err)
	}
	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Errorf("LastNotified() = %v, want %v", day, want)
	}
}

func TestMemoryNotificationCache(t *testing.T) {
	exerciseCache(t, services.NewMemoryNotificationCache(), "@a:example.org")
}

func newMiniRedisCache(t *testing.T) (*services.RedisNotificationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := services.NewRedisNotificationCache(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisNotificationCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisNotificationCache(t *testing.T) {
	cache, mr := newMiniRedisCache(t)
	user := "@a:example.org"

	exerciseCache(t, cache, user)

	key := "datekeeper:notified:" + user
	val, err := mr.Get(key)
	if err != nil || val != "2026-03-10" {
		t.Errorf("stored value = %q, %v; want 2026-03-10", val, err)
	}
	if ttl := mr.TTL(key); ttl != 8*24*time.Hour {
		t.Errorf("TTL = %v, want 8 days", ttl)
	}

	mr.FastForward(8*24*time.Hour + time.Second)
	if _, ok, err := cache.LastNotified(context.Background(), user); err != nil || ok {
		t.Errorf("LastNotified() after expiry = %v, %v; want unset", ok, err)
	}
}

func TestRedisNotificationCache_CorruptValue(t *testing.T) {
	cache, mr := newMiniRedisCache(t)
	if err := mr.Set("datekeeper:notified:@a:example.org", "not-a-date"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, _, err := cache.LastNotified(context.Background(), "@a:example.org"); err == nil {
		t.Fatal("LastNotified() on a corrupt value returned no error")
	}
}

func TestRedisNotificationCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := services.NewRedisNotificationCache(context.Background(), addr, "", 0); err == nil {
		t.Fatal("expected an error connecting to a closed server")
	}
}

// TestRedisNotificationCache_Server runs against a real Redis when
// TEST_REDIS_ADDR is set.
func TestRedisNotificationCache_Server(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("TEST_REDIS_DB"))

	cache, err := services.NewRedisNotificationCache(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"), db)
	if err != nil {
		t.Fatalf("NewRedisNotificationCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	exerciseCache(t, cache, "@test-"+strconv.FormatInt(time.Now().UnixNano(), 10)+":example.org")
}
